package tinvest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"YieldPull/internal/domain/models"
	imetrics "YieldPull/internal/service/metrics"
	xhttp "YieldPull/pkg/http"
)

const (
	bondCouponsPath = "/rest/tinkoff.public.invest.api.contract.v1.InstrumentsService/GetBondCoupons"
	dividendsPath   = "/rest/tinkoff.public.invest.api.contract.v1.InstrumentsService/GetDividends"
	bondByPath      = "/rest/tinkoff.public.invest.api.contract.v1.InstrumentsService/GetBondBy"
)

// Client implements PaymentProvider against the brokerage REST API.
type Client struct {
	baseURL string
	token   string
	client  *xhttp.Client
}

// NewClient creates a REST payment provider.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	imetrics.Register()
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// moneyValue is the units/nano decimal the API uses everywhere.
type moneyValue struct {
	Units    string `json:"units"`
	Nano     int64  `json:"nano"`
	Currency string `json:"currency"`
}

func (m moneyValue) Float() float64 {
	u, _ := strconv.ParseInt(m.Units, 10, 64)
	return float64(u) + float64(m.Nano)/1e9
}

type couponEvent struct {
	CouponDate time.Time  `json:"couponDate"`
	PayOneBond moneyValue `json:"payOneBond"`
}

type couponsResponse struct {
	Events []couponEvent `json:"events"`
}

type dividendEvent struct {
	PaymentDate time.Time  `json:"paymentDate"`
	DividendNet moneyValue `json:"dividendNet"`
}

type dividendsResponse struct {
	Dividends []dividendEvent `json:"dividends"`
}

// FetchPayments loads the payment window [since, now+1y] for one instrument.
// The window reaches a year ahead so announced future coupons land too.
func (c *Client) FetchPayments(ctx context.Context, instrumentID string, typ models.InstrumentType, since time.Time) ([]models.PaymentRecord, error) {
	to := time.Now().UTC().AddDate(1, 0, 0)
	if typ == models.TypeBond {
		return c.fetchCoupons(ctx, instrumentID, since, to)
	}
	return c.fetchDividends(ctx, instrumentID, typ, since, to)
}

func (c *Client) fetchCoupons(ctx context.Context, figi string, from, to time.Time) ([]models.PaymentRecord, error) {
	var resp couponsResponse
	if err := c.postJSON(ctx, bondCouponsPath, map[string]interface{}{
		"figi": figi,
		"from": from.Format(time.RFC3339),
		"to":   to.Format(time.RFC3339),
	}, &resp); err != nil {
		return nil, fmt.Errorf("get bond coupons %s: %w", figi, err)
	}

	out := make([]models.PaymentRecord, 0, len(resp.Events))
	for _, e := range resp.Events {
		if e.CouponDate.IsZero() {
			continue
		}
		out = append(out, models.PaymentRecord{
			PaymentDate:    e.CouponDate,
			Amount:         e.PayOneBond.Float(),
			Currency:       strings.ToLower(e.PayOneBond.Currency),
			InstrumentType: models.TypeBond,
		})
	}
	return out, nil
}

func (c *Client) fetchDividends(ctx context.Context, figi string, typ models.InstrumentType, from, to time.Time) ([]models.PaymentRecord, error) {
	var resp dividendsResponse
	if err := c.postJSON(ctx, dividendsPath, map[string]interface{}{
		"figi": figi,
		"from": from.Format(time.RFC3339),
		"to":   to.Format(time.RFC3339),
	}, &resp); err != nil {
		return nil, fmt.Errorf("get dividends %s: %w", figi, err)
	}

	out := make([]models.PaymentRecord, 0, len(resp.Dividends))
	for _, d := range resp.Dividends {
		if d.PaymentDate.IsZero() {
			continue
		}
		out = append(out, models.PaymentRecord{
			PaymentDate:    d.PaymentDate,
			Amount:         d.DividendNet.Float(),
			Currency:       strings.ToLower(d.DividendNet.Currency),
			InstrumentType: typ,
		})
	}
	return out, nil
}

// NextAnnounced returns the nearest declared future dividend, nil when the
// provider lists none ahead of now.
func (c *Client) NextAnnounced(ctx context.Context, instrumentID string) (*models.PaymentRecord, error) {
	now := time.Now().UTC()
	recs, err := c.fetchDividends(ctx, instrumentID, models.TypeStock, now, now.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	var next *models.PaymentRecord
	for i := range recs {
		r := recs[i]
		if !r.PaymentDate.After(now) {
			continue
		}
		if next == nil || r.PaymentDate.Before(next.PaymentDate) {
			next = &r
		}
	}
	return next, nil
}

type bondResponse struct {
	Instrument struct {
		Nominal               moneyValue `json:"nominal"`
		InitialNominal        moneyValue `json:"initialNominal"`
		CouponQuantityPerYear int        `json:"couponQuantityPerYear"`
		MaturityDate          time.Time  `json:"maturityDate"`
		FloatingCouponFlag    bool       `json:"floatingCouponFlag"`
		AmortizationFlag      bool       `json:"amortizationFlag"`
	} `json:"instrument"`
}

// BondTerms loads the static bond parameters by FIGI.
func (c *Client) BondTerms(ctx context.Context, instrumentID string) (*models.BondTerms, error) {
	var resp bondResponse
	if err := c.postJSON(ctx, bondByPath, map[string]interface{}{
		"idType": "INSTRUMENT_ID_TYPE_FIGI",
		"id":     instrumentID,
	}, &resp); err != nil {
		return nil, fmt.Errorf("get bond %s: %w", instrumentID, err)
	}
	b := resp.Instrument
	return &models.BondTerms{
		Nominal:         b.Nominal.Float(),
		InitialNominal:  b.InitialNominal.Float(),
		NominalCurrency: strings.ToLower(b.Nominal.Currency),
		CouponsPerYear:  b.CouponQuantityPerYear,
		MaturityDate:    b.MaturityDate,
		FloatingCoupon:  b.FloatingCouponFlag,
		Amortization:    b.AmortizationFlag,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if c.client == nil || c.baseURL == "" {
		return fmt.Errorf("tinvest http client not initialized")
	}
	start := time.Now()
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + c.token,
		},
		Body: payload,
	}, dest)
	imetrics.ProviderLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		imetrics.ProviderErrors.WithLabelValues(path).Inc()
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

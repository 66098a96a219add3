package usecase

import (
	"sort"
	"time"

	"YieldPull/internal/domain/models"
)

// ScreenerRow is one ranked instrument in a screener response.
type ScreenerRow struct {
	InstrumentID string                `json:"instrument_id"`
	Ticker       string                `json:"ticker"`
	Name         string                `json:"name,omitempty"`
	Type         models.InstrumentType `json:"instrument_type"`
	// Value is the metric the rows are ranked by.
	Value models.Metric `json:"value"`

	TrailingYield     models.Metric `json:"trailing_yield"`
	ForwardYield      models.Metric `json:"forward_yield"`
	YieldPlusGrowth   models.Metric `json:"yield_plus_growth"`
	RiskAdjYield      models.Metric `json:"risk_adj_yield"`
	DividendCAGR3Y    models.Metric `json:"dividend_cagr_3y"`
	DividendStability models.Metric `json:"dividend_stability"`

	CurrentYield   models.Metric `json:"current_yield"`
	DaysToMaturity int           `json:"days_to_maturity,omitempty"`
}

// Screener ranks tracked instruments by a chosen yield metric.
// Instruments whose ranking metric is undefined sort after all defined
// ones regardless of the order; missing data never ranks above real data.
type Screener struct {
	refresher *MetricsRefresher
}

func NewScreener(refresher *MetricsRefresher) *Screener {
	return &Screener{refresher: refresher}
}

// Screen returns up to limit instruments of the given type ranked by
// sortBy descending.
func (s *Screener) Screen(typ models.InstrumentType, sortBy string, limit int) []ScreenerRow {
	now := time.Now().UTC()
	insts := s.refresher.List(typ)

	rows := make([]ScreenerRow, 0, len(insts))
	for _, inst := range insts {
		row := ScreenerRow{
			InstrumentID:   inst.ID,
			Ticker:         inst.Ticker,
			Name:           inst.Name,
			Type:           inst.Type,
			DaysToMaturity: inst.DaysToMaturity(now),
		}
		if d := inst.Dividends; d != nil {
			row.TrailingYield = d.TrailingYield
			row.ForwardYield = d.ForwardYield
			row.YieldPlusGrowth = d.YieldPlusGrowth
			row.RiskAdjYield = d.RiskAdjYield
			row.DividendCAGR3Y = d.DividendCAGR3Y
			row.DividendStability = d.DividendStability
		}
		if c := inst.Coupons; c != nil {
			row.CurrentYield = c.CurrentYield
		}
		row.Value = sortValue(row, sortBy)
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Value, rows[j].Value
		if a.Valid != b.Valid {
			return a.Valid
		}
		if !a.Valid {
			return false
		}
		return a.Value > b.Value
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func sortValue(row ScreenerRow, sortBy string) models.Metric {
	switch sortBy {
	case "trailing_yield":
		return row.TrailingYield
	case "yield_plus_growth":
		return row.YieldPlusGrowth
	case "risk_adj_yield":
		return row.RiskAdjYield
	case "dividend_cagr_3y":
		return row.DividendCAGR3Y
	case "current_yield":
		return row.CurrentYield
	default:
		if row.Type == models.TypeBond {
			return row.CurrentYield
		}
		return row.ForwardYield
	}
}

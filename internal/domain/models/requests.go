package models

// Requests for the metrics HTTP endpoints. Defined in domain for consistency and reuse.

type InstrumentMetricsRequest struct {
	ID string `param:"id" json:"id" validate:"required"`
}

type RefreshRequest struct {
	IDs   []string `json:"ids"`
	Force bool     `json:"force" default:"false"`
}

type ScreenerRequest struct {
	SortBy string `query:"sort_by" json:"sort_by" default:"forward_yield" validate:"oneof=forward_yield yield_plus_growth risk_adj_yield trailing_yield dividend_cagr_3y current_yield"`
	Type   string `query:"type" json:"type" default:"stock" validate:"oneof=stock etf bond"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

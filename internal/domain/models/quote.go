package models

// Quote is one last-price tick from the market-data stream.
type Quote struct {
	InstrumentID string
	Timestamp    int64 // unix seconds
	Price        float64
}

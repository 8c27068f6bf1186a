package models

// Requests for the dashboard-facing HTTP endpoints. Defined in domain for consistency and reuse.

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Count  int    `query:"count" json:"count" default:"100" validate:"gte=1,lte=5000"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}

type ExportRequest struct {
	Count int `query:"count" json:"count" default:"500" validate:"gte=1,lte=10000"`
}

type BacktestRequest struct {
	EntryZ float64 `query:"entry_z" json:"entry_z" default:"2.0" validate:"gte=1.0,lte=4.0"`
	ExitZ  float64 `query:"exit_z" json:"exit_z" validate:"gte=-1.0,lte=1.0"`
	Count  int     `query:"count" json:"count" default:"5000" validate:"gte=2,lte=100000"`
}

package models

import "time"

// Tick is a single normalized trade event for one symbol.
// EventTime is the exchange event timestamp in milliseconds.
type Tick struct {
	Symbol    string
	Price     float64
	Quantity  float64
	EventTime int64
	TradeID   int64
}

// Time returns the event time as UTC time.Time.
func (t *Tick) Time() time.Time {
	return time.UnixMilli(t.EventTime).UTC()
}

// Bar is an OHLCV aggregate of the ticks whose event time falls in
// [Start, End). A bar is mutable only while its interval is open.
type Bar struct {
	Symbol string
	Start  time.Time
	End    time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Ticks  int
}

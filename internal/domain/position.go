package domain

import "time"

// Side is the taker side of an execution or the closing side of a position,
// using the exchange's wire values.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Opposite returns the complementary side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Execution is a single fill of an order as reported by the exchange.
// Multiple executions may share an OrderID; ExecID is unique.
type Execution struct {
	Symbol      string
	Side        Side
	OrderID     string
	ExecID      string
	ExecType    string // only "Trade" participates in position matching
	ExecTime    time.Time
	ExecPrice   float64
	ExecQty     float64
	ExecValue   float64
	ExecFee     float64
	FeeCurrency string
	Category    string // "linear" or "spot"
	OrderType   string
	IsMaker     bool
}

// ClosedPosition is a fully closed futures position as reported by the
// exchange. Side is the side of the closing trade; CreatedTime/UpdatedTime
// bound the position's lifetime as tracked by the exchange, not necessarily
// the true fill times.
type ClosedPosition struct {
	Symbol        string
	Side          Side
	OrderID       string // order id of the closing order
	Qty           float64
	AvgEntryPrice float64
	AvgExitPrice  float64
	ClosedPnl     float64
	CreatedTime   time.Time
	UpdatedTime   time.Time
	OpenFee       float64
	CloseFee      float64
	Leverage      string
}

// MatchMethod is the confidence tier of an execution-to-position correlation.
type MatchMethod string

const (
	MatchOrderID   MatchMethod = "OrderIdMatch"
	MatchPriceTime MatchMethod = "PriceTimeMatch"
	MatchFallback  MatchMethod = "Fallback"
)

// EnrichedPosition is a ClosedPosition augmented with timing inferred from
// the account's execution stream.
type EnrichedPosition struct {
	ClosedPosition

	ActualOpenTime     time.Time
	ActualCloseTime    time.Time
	ActualHoldDuration time.Duration
	// HoldLabel is the display form of the hold duration; the fallback path
	// reports "Very Short Trade" when the exchange timestamps are less than
	// a second apart.
	HoldLabel         string
	ExecutionCount    int
	TotalExecQty      float64
	HasExecutionMatch bool
	MatchMethod       MatchMethod
	OpeningOrderID    string
	ClosingOrderID    string
}

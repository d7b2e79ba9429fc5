package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind identifies a history endpoint on the exchange.
type RecordKind string

const (
	KindExecutionLinear    RecordKind = "execution-linear"
	KindExecutionSpot      RecordKind = "execution-spot"
	KindClosedPnL          RecordKind = "closed-pnl"
	KindDepositRecords     RecordKind = "deposit-records"
	KindWithdrawalRecords  RecordKind = "withdrawal-records"
	KindInternalDeposits   RecordKind = "internal-deposit-records"
	KindInternalTransfers  RecordKind = "internal-transfer-records"
	KindUniversalTransfers RecordKind = "universal-transfer-records"
	KindConvertHistory     RecordKind = "convert-history"
)

// RawRecord is one record exactly as the exchange returned it: a flat mapping
// of field names to primitive values. All numeric parsing of raw records is
// defensive and happens in one translation layer.
type RawRecord map[string]any

// Row is one transformed output row keyed by column name. Column order is
// carried separately as a header list so every write uses the same order.
type Row map[string]string

// WalletFlow is a deposit or withdrawal crossing the account boundary.
type WalletFlow struct {
	Direction string // "Deposit (Inflow)" or "Withdrawal (Outflow)"
	Coin      string
	Chain     string
	Amount    float64
	Status    string
	TxID      string
	Time      time.Time
	Pending   bool // on-chain deposit not yet credited, no success timestamp
}

// Transfer is a movement of funds between accounts or UIDs that never leaves
// the exchange.
type Transfer struct {
	TransferID  string
	Coin        string
	Amount      float64
	FromAccount string
	ToAccount   string
	FromUID     string
	ToUID       string
	Status      string
	Time        time.Time
	Universal   bool // between UIDs rather than between account types
}

// Conversion is one coin-to-coin convert trade.
type Conversion struct {
	FromCoin   string
	ToCoin     string
	FromAmount float64
	ToAmount   float64
	Rate       float64
	Status     string
	Time       time.Time
}

// CoinBalance is a single coin's balance within one account type.
type CoinBalance struct {
	AccountType string
	Coin        string
	Balance     float64
	Available   float64
	Locked      float64
	USDValue    float64
}

// TradingStats summarises one sync's futures activity.
type TradingStats struct {
	FuturesCount  int
	SpotCount     int
	FlowCount     int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalPnl      decimal.Decimal
	TotalFees     decimal.Decimal
}

// SyncRun records one completed sync for the report store.
type SyncRun struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Sections   int
	Notes      string
}

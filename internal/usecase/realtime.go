package usecase

import (
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

// Sheets maintained by the realtime logger.
const (
	SheetRealtimeLog   = "Real-Time Log"
	SheetOpenPositions = "Live Open Positions"
	SheetLiveWallet    = "Live Wallet Balance"
)

var (
	RealtimeExecHeaders = []string{"Timestamp", "Category", "Symbol", "Side", "Fee", "Exec Price",
		"Exec Qty", "Exec Value", "Order Type", "Maker/Taker", "Order ID", "Execution ID"}
	LivePositionHeaders = []string{"Symbol", "Side", "Size", "Entry Price", "Mark Price",
		"Value (USD)", "Unrealized PnL", "Leverage", "Liq. Price", "Updated"}
	LiveWalletHeaders = []string{"Coin", "Balance", "Available", "Value (USD)"}
)

// RealtimeLogger consumes the account's private stream and keeps three
// sheets current: an append-only execution log deduplicated by execution id,
// and overwrite snapshots of open positions and wallet balances.
type RealtimeLogger struct {
	sink domain.RowSink
	log  *zap.Logger

	mu        sync.Mutex
	seenExecs map[string]struct{}
	positions map[string]domain.Row
}

func NewRealtimeLogger(sink domain.RowSink, log *zap.Logger) *RealtimeLogger {
	return &RealtimeLogger{
		sink:      sink,
		log:       log,
		seenExecs: make(map[string]struct{}),
		positions: make(map[string]domain.Row),
	}
}

// Attach registers the logger's handlers on a private stream.
func (l *RealtimeLogger) Attach(stream domain.PrivateStream) {
	stream.OnExecution(l.HandleExecutions)
	stream.OnPosition(l.HandlePositions)
	stream.OnWallet(l.HandleWallet)
}

// HandleExecutions appends new trade executions to the realtime log. The
// stream redelivers messages after reconnects, so rows are deduplicated by
// execution id.
func (l *RealtimeLogger) HandleExecutions(records []domain.RawRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var rows []domain.Row
	for _, rec := range records {
		e := ParseExecution(l.log, rec)
		if e.ExecType != "Trade" || e.ExecID == "" {
			continue
		}
		if _, seen := l.seenExecs[e.ExecID]; seen {
			continue
		}
		l.seenExecs[e.ExecID] = struct{}{}

		makerTaker := "Taker"
		if e.IsMaker {
			makerTaker = "Maker"
		}
		rows = append(rows, domain.Row{
			"Timestamp":    e.ExecTime.Format(timeLayout),
			"Category":     e.Category,
			"Symbol":       e.Symbol,
			"Side":         string(e.Side),
			"Fee":          strconv.FormatFloat(e.ExecFee, 'f', 8, 64),
			"Exec Price":   strconv.FormatFloat(e.ExecPrice, 'f', -1, 64),
			"Exec Qty":     strconv.FormatFloat(e.ExecQty, 'f', -1, 64),
			"Exec Value":   strconv.FormatFloat(e.ExecValue, 'f', -1, 64),
			"Order Type":   e.OrderType,
			"Maker/Taker":  makerTaker,
			"Order ID":     e.OrderID,
			"Execution ID": e.ExecID,
		})
	}
	if len(rows) == 0 {
		return
	}
	if err := l.sink.Append(SheetRealtimeLog, RealtimeExecHeaders, rows); err != nil {
		l.log.Error("append realtime log failed", zap.Error(err))
		return
	}
	l.log.Info("logged executions", zap.Int("count", len(rows)))
}

// HandlePositions maintains the open-position snapshot. A position update
// with zero size removes the symbol from the snapshot.
func (l *RealtimeLogger) HandlePositions(records []domain.RawRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := false
	for _, rec := range records {
		f := newFieldReader(l.log, "live-position", rec)
		symbol := f.str("symbol")
		if symbol == "" {
			continue
		}
		if f.float("size") == 0 {
			if _, ok := l.positions[symbol]; ok {
				delete(l.positions, symbol)
				changed = true
			}
			continue
		}
		l.positions[symbol] = domain.Row{
			"Symbol":         symbol,
			"Side":           f.str("side"),
			"Size":           f.str("size"),
			"Entry Price":    f.str("entryPrice"),
			"Mark Price":     f.str("markPrice"),
			"Value (USD)":    f.str("positionValue"),
			"Unrealized PnL": f.str("unrealisedPnl"),
			"Leverage":       f.str("leverage"),
			"Liq. Price":     f.str("liqPrice"),
			"Updated":        f.msTime("updatedTime").Format("15:04:05"),
		}
		changed = true
	}
	if !changed {
		return
	}
	if err := l.sink.Overwrite(SheetOpenPositions, LivePositionHeaders, l.snapshotRows()); err != nil {
		l.log.Error("sync open positions failed", zap.Error(err))
		return
	}
	l.log.Info("synced open positions", zap.Int("count", len(l.positions)))
}

// HandleWallet overwrites the live balance snapshot with the coins carrying
// a positive balance.
func (l *RealtimeLogger) HandleWallet(records []domain.RawRecord) {
	if len(records) == 0 {
		return
	}
	f := newFieldReader(l.log, "live-wallet", records[0])
	coins, _ := f.rec["coin"].([]any)

	var rows []domain.Row
	for _, c := range coins {
		rec, ok := c.(map[string]any)
		if !ok {
			continue
		}
		cf := newFieldReader(l.log, "live-wallet", domain.RawRecord(rec))
		if cf.float("walletBalance") <= 0 {
			continue
		}
		rows = append(rows, domain.Row{
			"Coin":        cf.str("coin"),
			"Balance":     cf.str("walletBalance"),
			"Available":   cf.str("availableToWithdraw"),
			"Value (USD)": cf.str("usdValue"),
		})
	}
	if err := l.sink.Overwrite(SheetLiveWallet, LiveWalletHeaders, rows); err != nil {
		l.log.Error("sync wallet balance failed", zap.Error(err))
		return
	}
	l.log.Info("synced wallet balances", zap.Int("count", len(rows)))
}

// snapshotRows returns the position snapshot in a stable symbol order.
func (l *RealtimeLogger) snapshotRows() []domain.Row {
	symbols := make([]string, 0, len(l.positions))
	for s := range l.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	rows := make([]domain.Row, 0, len(symbols))
	for _, s := range symbols {
		rows = append(rows, l.positions[s])
	}
	return rows
}

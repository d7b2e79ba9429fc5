package usecase

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// Sheet names and their fixed column orders. Every write of a sheet uses the
// same header list so columns never drift between runs.
const (
	SheetFutures    = "Futures History"
	SheetSpot       = "Spot History"
	SheetFlows      = "Wallet Flows"
	SheetTransfers  = "Transfers"
	SheetConversion = "Conversions"
	SheetAllocation = "Asset Allocation"
	SheetOverview   = "Portfolio Overview"
)

var (
	FuturesHeaders = []string{"Symbol", "Open Time", "Close Time", "Hold Duration", "Timing Source",
		"Initial Capital", "Risk% to Wallet", "Profit/Loss", "Fee Cost", "Updated"}
	SpotHeaders = []string{"Time", "Symbol", "Side", "Quantity", "Price", "Total Value",
		"Fee", "Fee Currency", "Order ID", "Execution ID", "Updated"}
	FlowHeaders = []string{"Time", "Type", "Coin", "Amount", "Status", "Chain", "TX ID", "Updated"}
	TransferHeaders = []string{"Time", "Scope", "Coin", "Amount", "From", "To", "Status", "Updated"}
	ConversionHeaders = []string{"Time", "From Coin", "From Amount", "To Coin", "To Amount",
		"Rate", "Status", "Updated"}
	AllocationHeaders = []string{"Account Type", "Coin", "Wallet Balance", "Available Balance",
		"Locked/In Orders", "USD Value", "Updated"}
	OverviewHeaders = []string{"Metric", "Value", "Updated"}
)

// FuturesRows renders enriched positions for the futures history sheet.
// totalBalance is the account's wallet balance used for the risk column;
// zero renders as "Unknown". updated is the caller's sync timestamp so the
// builder itself stays clock-free.
func FuturesRows(positions []domain.EnrichedPosition, totalBalance float64, updated time.Time) []domain.Row {
	rows := make([]domain.Row, 0, len(positions))
	updatedStr := updated.Format(timeLayout)

	for _, p := range positions {
		timingSource := "Position Times"
		if p.HasExecutionMatch {
			timingSource = "Execution Match"
		}

		entryValue := p.Qty * p.AvgEntryPrice
		riskPct := 0.0
		if totalBalance > 0 {
			riskPct = entryValue / totalBalance * 100
		}
		capital := "Unknown"
		if totalBalance > 0 {
			capital = fmt.Sprintf("%.2f", totalBalance)
		}

		totalFee := decimal.NewFromFloat(p.OpenFee).Add(decimal.NewFromFloat(p.CloseFee))

		rows = append(rows, domain.Row{
			"Symbol":          p.Symbol,
			"Open Time":       p.ActualOpenTime.Format(timeLayout),
			"Close Time":      p.ActualCloseTime.Format(timeLayout),
			"Hold Duration":   p.HoldLabel,
			"Timing Source":   timingSource,
			"Initial Capital": capital,
			"Risk% to Wallet": fmt.Sprintf("%.2f%%", riskPct),
			"Profit/Loss":     strconv.FormatFloat(p.ClosedPnl, 'f', -1, 64),
			"Fee Cost":        totalFee.StringFixed(6),
			"Updated":         updatedStr,
		})
	}
	return rows
}

// SpotRows renders spot executions for the spot history sheet.
func SpotRows(trades []domain.Execution, updated time.Time) []domain.Row {
	rows := make([]domain.Row, 0, len(trades))
	updatedStr := updated.Format(timeLayout)

	for _, t := range trades {
		totalValue := decimal.NewFromFloat(t.ExecQty).Mul(decimal.NewFromFloat(t.ExecPrice))
		rows = append(rows, domain.Row{
			"Time":         t.ExecTime.Format(timeLayout),
			"Symbol":       t.Symbol,
			"Side":         string(t.Side),
			"Quantity":     strconv.FormatFloat(t.ExecQty, 'f', -1, 64),
			"Price":        strconv.FormatFloat(t.ExecPrice, 'f', -1, 64),
			"Total Value":  totalValue.StringFixed(4),
			"Fee":          strconv.FormatFloat(t.ExecFee, 'f', -1, 64),
			"Fee Currency": t.FeeCurrency,
			"Order ID":     t.OrderID,
			"Execution ID": t.ExecID,
			"Updated":      updatedStr,
		})
	}
	return rows
}

// FlowRows renders deposits and withdrawals, most recent first. Pending
// deposits have no credited timestamp and sort last.
func FlowRows(flows []domain.WalletFlow, updated time.Time) []domain.Row {
	sorted := make([]domain.WalletFlow, len(flows))
	copy(sorted, flows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.After(sorted[j].Time)
	})

	rows := make([]domain.Row, 0, len(sorted))
	updatedStr := updated.Format(timeLayout)
	for _, f := range sorted {
		timeStr := "Pending"
		if !f.Pending {
			timeStr = f.Time.Format(timeLayout)
		}
		rows = append(rows, domain.Row{
			"Time":    timeStr,
			"Type":    f.Direction,
			"Coin":    f.Coin,
			"Amount":  strconv.FormatFloat(f.Amount, 'f', -1, 64),
			"Status":  f.Status,
			"Chain":   f.Chain,
			"TX ID":   f.TxID,
			"Updated": updatedStr,
		})
	}
	return rows
}

// TransferRows renders internal and universal transfers, most recent first.
func TransferRows(transfers []domain.Transfer, updated time.Time) []domain.Row {
	sorted := make([]domain.Transfer, len(transfers))
	copy(sorted, transfers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.After(sorted[j].Time)
	})

	rows := make([]domain.Row, 0, len(sorted))
	updatedStr := updated.Format(timeLayout)
	for _, t := range sorted {
		scope := "Internal"
		from, to := t.FromAccount, t.ToAccount
		if t.Universal {
			scope = "Universal"
			from, to = t.FromUID, t.ToUID
		}
		rows = append(rows, domain.Row{
			"Time":    t.Time.Format(timeLayout),
			"Scope":   scope,
			"Coin":    t.Coin,
			"Amount":  strconv.FormatFloat(t.Amount, 'f', -1, 64),
			"From":    from,
			"To":      to,
			"Status":  t.Status,
			"Updated": updatedStr,
		})
	}
	return rows
}

// ConversionRows renders convert-history trades.
func ConversionRows(conversions []domain.Conversion, updated time.Time) []domain.Row {
	rows := make([]domain.Row, 0, len(conversions))
	updatedStr := updated.Format(timeLayout)
	for _, c := range conversions {
		rows = append(rows, domain.Row{
			"Time":        c.Time.Format(timeLayout),
			"From Coin":   c.FromCoin,
			"From Amount": strconv.FormatFloat(c.FromAmount, 'f', -1, 64),
			"To Coin":     c.ToCoin,
			"To Amount":   strconv.FormatFloat(c.ToAmount, 'f', -1, 64),
			"Rate":        strconv.FormatFloat(c.Rate, 'f', -1, 64),
			"Status":      c.Status,
			"Updated":     updatedStr,
		})
	}
	return rows
}

// AllocationRows renders per-coin balances for the asset allocation sheet.
func AllocationRows(balances []domain.CoinBalance, updated time.Time) []domain.Row {
	rows := make([]domain.Row, 0, len(balances))
	updatedStr := updated.Format(timeLayout)
	for _, b := range balances {
		rows = append(rows, domain.Row{
			"Account Type":      b.AccountType,
			"Coin":              b.Coin,
			"Wallet Balance":    decimal.NewFromFloat(b.Balance).StringFixed(8),
			"Available Balance": decimal.NewFromFloat(b.Available).StringFixed(8),
			"Locked/In Orders":  decimal.NewFromFloat(b.Locked).StringFixed(8),
			"USD Value":         decimal.NewFromFloat(b.USDValue).StringFixed(4),
			"Updated":           updatedStr,
		})
	}
	return rows
}

// TotalBalance extracts the USDT balance for risk calculations, falling back
// to the summed USD value of all coins when the account holds no USDT.
func TotalBalance(balances []domain.CoinBalance) float64 {
	for _, b := range balances {
		if b.Coin == "USDT" {
			return b.Balance
		}
	}
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(decimal.NewFromFloat(b.USDValue))
	}
	f, _ := total.Float64()
	return f
}

// ComputeStats summarises the sync's activity. PnL and fees are summed in
// decimal so long histories do not accumulate float drift.
func ComputeStats(positions []domain.EnrichedPosition, spotCount, flowCount int) domain.TradingStats {
	stats := domain.TradingStats{
		FuturesCount: len(positions),
		SpotCount:    spotCount,
		FlowCount:    flowCount,
		TotalPnl:     decimal.Zero,
		TotalFees:    decimal.Zero,
	}
	for _, p := range positions {
		stats.TotalPnl = stats.TotalPnl.Add(decimal.NewFromFloat(p.ClosedPnl))
		stats.TotalFees = stats.TotalFees.Add(decimal.NewFromFloat(p.OpenFee)).Add(decimal.NewFromFloat(p.CloseFee))
		if p.ClosedPnl > 0 {
			stats.WinningTrades++
		} else if p.ClosedPnl < 0 {
			stats.LosingTrades++
		}
	}
	if decided := stats.WinningTrades + stats.LosingTrades; decided > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(decided) * 100
	}
	return stats
}

// OverviewRows renders the portfolio overview as metric/value pairs.
func OverviewRows(stats domain.TradingStats, totalBalance float64, updated time.Time) []domain.Row {
	updatedStr := updated.Format(timeLayout)
	metrics := []struct{ name, value string }{
		{"Total Wallet Balance (USDT)", fmt.Sprintf("%.2f", totalBalance)},
		{"Closed Futures Positions", strconv.Itoa(stats.FuturesCount)},
		{"Spot Trades", strconv.Itoa(stats.SpotCount)},
		{"Wallet Transactions", strconv.Itoa(stats.FlowCount)},
		{"Total Futures PnL", stats.TotalPnl.StringFixed(4)},
		{"Total Fees", stats.TotalFees.StringFixed(6)},
		{"Winning Trades", strconv.Itoa(stats.WinningTrades)},
		{"Losing Trades", strconv.Itoa(stats.LosingTrades)},
		{"Win Rate", fmt.Sprintf("%.2f%%", stats.WinRate)},
	}

	rows := make([]domain.Row, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, domain.Row{"Metric": m.name, "Value": m.value, "Updated": updatedStr})
	}
	return rows
}

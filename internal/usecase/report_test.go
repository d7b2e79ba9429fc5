package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/bybit_trade_journal/internal/domain"
	"github.com/vitos/bybit_trade_journal/internal/usecase"
)

var syncedAt = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func TestFuturesRowsRiskAndTimingSource(t *testing.T) {
	positions := []domain.EnrichedPosition{
		{
			ClosedPosition: domain.ClosedPosition{
				Symbol: "BTCUSDT", Qty: 0.1, AvgEntryPrice: 50000,
				ClosedPnl: 25, OpenFee: 0.5, CloseFee: 0.25,
			},
			ActualOpenTime:    time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC),
			ActualCloseTime:   time.Date(2025, 9, 30, 11, 0, 0, 0, time.UTC),
			HoldLabel:         "1h0m0s",
			HasExecutionMatch: true,
		},
		{
			ClosedPosition: domain.ClosedPosition{Symbol: "ETHUSDT", Qty: 1, AvgEntryPrice: 3000},
		},
	}

	rows := usecase.FuturesRows(positions, 10000, syncedAt)
	require.Len(t, rows, 2)

	// 0.1 * 50000 / 10000 = 50%
	assert.Equal(t, "50.00%", rows[0]["Risk% to Wallet"])
	assert.Equal(t, "Execution Match", rows[0]["Timing Source"])
	assert.Equal(t, "10000.00", rows[0]["Initial Capital"])
	assert.Equal(t, "0.750000", rows[0]["Fee Cost"])
	assert.Equal(t, "2025-09-30 10:00:00", rows[0]["Open Time"])

	assert.Equal(t, "Position Times", rows[1]["Timing Source"])
}

func TestFuturesRowsUnknownCapital(t *testing.T) {
	positions := []domain.EnrichedPosition{
		{ClosedPosition: domain.ClosedPosition{Symbol: "BTCUSDT", Qty: 1, AvgEntryPrice: 100}},
	}

	rows := usecase.FuturesRows(positions, 0, syncedAt)
	require.Len(t, rows, 1)
	assert.Equal(t, "Unknown", rows[0]["Initial Capital"])
	assert.Equal(t, "0.00%", rows[0]["Risk% to Wallet"])
}

func TestFlowRowsMostRecentFirstWithPendingLast(t *testing.T) {
	flows := []domain.WalletFlow{
		{Direction: "Deposit", Coin: "USDT", Amount: 100, Time: time.UnixMilli(1000)},
		{Direction: "Deposit", Coin: "BTC", Amount: 1, Pending: true},
		{Direction: "Withdrawal", Coin: "USDT", Amount: 50, Time: time.UnixMilli(9000)},
	}

	rows := usecase.FlowRows(flows, syncedAt)
	require.Len(t, rows, 3)

	assert.Equal(t, "Withdrawal", rows[0]["Type"])
	assert.Equal(t, "USDT", rows[1]["Coin"])
	assert.Equal(t, "Pending", rows[2]["Time"])
	assert.Equal(t, "BTC", rows[2]["Coin"])
}

func TestTransferRowsScopeColumns(t *testing.T) {
	transfers := []domain.Transfer{
		{Coin: "USDT", Amount: 10, FromAccount: "UNIFIED", ToAccount: "FUND", Time: time.UnixMilli(1000)},
		{Coin: "USDT", Amount: 20, FromUID: "111", ToUID: "222", Universal: true, Time: time.UnixMilli(2000)},
	}

	rows := usecase.TransferRows(transfers, syncedAt)
	require.Len(t, rows, 2)

	assert.Equal(t, "Universal", rows[0]["Scope"])
	assert.Equal(t, "111", rows[0]["From"])
	assert.Equal(t, "Internal", rows[1]["Scope"])
	assert.Equal(t, "UNIFIED", rows[1]["From"])
}

func TestTotalBalancePrefersUSDT(t *testing.T) {
	withUSDT := []domain.CoinBalance{
		{Coin: "BTC", Balance: 1, USDValue: 50000},
		{Coin: "USDT", Balance: 1234.5, USDValue: 1234.5},
	}
	assert.Equal(t, 1234.5, usecase.TotalBalance(withUSDT))

	withoutUSDT := []domain.CoinBalance{
		{Coin: "BTC", Balance: 1, USDValue: 50000},
		{Coin: "ETH", Balance: 10, USDValue: 30000},
	}
	assert.Equal(t, 80000.0, usecase.TotalBalance(withoutUSDT))

	assert.Zero(t, usecase.TotalBalance(nil))
}

func TestComputeStats(t *testing.T) {
	positions := []domain.EnrichedPosition{
		{ClosedPosition: domain.ClosedPosition{ClosedPnl: 100, OpenFee: 0.1, CloseFee: 0.1}},
		{ClosedPosition: domain.ClosedPosition{ClosedPnl: -40, CloseFee: 0.2}},
		{ClosedPosition: domain.ClosedPosition{ClosedPnl: 60}},
		{ClosedPosition: domain.ClosedPosition{ClosedPnl: 0}}, // breakeven, not counted
	}

	stats := usecase.ComputeStats(positions, 7, 3)

	assert.Equal(t, 4, stats.FuturesCount)
	assert.Equal(t, 7, stats.SpotCount)
	assert.Equal(t, 3, stats.FlowCount)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.InDelta(t, 66.67, stats.WinRate, 0.01)
	assert.Equal(t, "120.0000", stats.TotalPnl.StringFixed(4))
	assert.Equal(t, "0.400000", stats.TotalFees.StringFixed(6))
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := usecase.ComputeStats(nil, 0, 0)
	assert.Zero(t, stats.WinRate)
	assert.True(t, stats.TotalPnl.IsZero())
}

func TestOverviewRowsMetricOrder(t *testing.T) {
	stats := usecase.ComputeStats([]domain.EnrichedPosition{
		{ClosedPosition: domain.ClosedPosition{ClosedPnl: 10}},
	}, 2, 1)

	rows := usecase.OverviewRows(stats, 500.25, syncedAt)
	require.Len(t, rows, 9)

	assert.Equal(t, "Total Wallet Balance (USDT)", rows[0]["Metric"])
	assert.Equal(t, "500.25", rows[0]["Value"])
	assert.Equal(t, "Win Rate", rows[8]["Metric"])
	assert.Equal(t, "100.00%", rows[8]["Value"])
}

package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/bybit_trade_journal/internal/domain"
	"github.com/vitos/bybit_trade_journal/internal/usecase"
)

func TestParseExecutionDefensiveDefaults(t *testing.T) {
	rec := domain.RawRecord{
		"symbol":    "BTCUSDT",
		"side":      "Buy",
		"execPrice": "not-a-number",
		"execQty":   "",
		// execTime, execFee absent entirely
		"isMaker": "true",
	}

	e := usecase.ParseExecution(zap.NewNop(), rec)

	assert.Equal(t, "BTCUSDT", e.Symbol)
	assert.Equal(t, domain.SideBuy, e.Side)
	assert.Zero(t, e.ExecPrice)
	assert.Zero(t, e.ExecQty)
	assert.Zero(t, e.ExecFee)
	assert.True(t, e.ExecTime.IsZero())
	assert.True(t, e.IsMaker)
}

func TestParseExecutionNumericVariants(t *testing.T) {
	// Bybit serialises numbers as strings, but tolerate raw JSON numbers too.
	rec := domain.RawRecord{
		"symbol":    "ETHUSDT",
		"execPrice": 3000.5,
		"execQty":   "2.25",
		"execTime":  "1700000000000",
	}

	e := usecase.ParseExecution(zap.NewNop(), rec)

	assert.Equal(t, 3000.5, e.ExecPrice)
	assert.Equal(t, 2.25, e.ExecQty)
	assert.True(t, e.ExecTime.Equal(time.UnixMilli(1700000000000)))
}

func TestParseClosedPositionCombinedFee(t *testing.T) {
	rec := domain.RawRecord{
		"symbol":      "BTCUSDT",
		"side":        "Sell",
		"orderId":     "o1",
		"qty":         "1",
		"closedPnl":   "12.5",
		"orderFee":    "0.3",
		"createdTime": "1000",
		"updatedTime": "2000",
	}

	p := usecase.ParseClosedPosition(zap.NewNop(), rec)

	assert.Zero(t, p.OpenFee)
	assert.Equal(t, 0.3, p.CloseFee)
	assert.Equal(t, 12.5, p.ClosedPnl)
}

func TestParseClosedPositionSplitFeesIgnoreOrderFee(t *testing.T) {
	rec := domain.RawRecord{
		"symbol":   "BTCUSDT",
		"openFee":  "0.1",
		"closeFee": "0.2",
		"orderFee": "99",
	}

	p := usecase.ParseClosedPosition(zap.NewNop(), rec)

	assert.Equal(t, 0.1, p.OpenFee)
	assert.Equal(t, 0.2, p.CloseFee)
}

func TestParseWalletFlowTimestamps(t *testing.T) {
	log := zap.NewNop()

	credited := usecase.ParseWalletFlow(log, domain.RawRecord{
		"coin": "USDT", "amount": "100", "successAt": "5000",
	}, "Deposit")
	assert.False(t, credited.Pending)
	assert.True(t, credited.Time.Equal(time.UnixMilli(5000)))

	created := usecase.ParseWalletFlow(log, domain.RawRecord{
		"coin": "USDT", "amount": "100", "createTime": "4000",
	}, "Withdrawal")
	assert.False(t, created.Pending)
	assert.True(t, created.Time.Equal(time.UnixMilli(4000)))

	pending := usecase.ParseWalletFlow(log, domain.RawRecord{
		"coin": "USDT", "amount": "100",
	}, "Deposit")
	assert.True(t, pending.Pending)
}

func TestParseTransferScopes(t *testing.T) {
	log := zap.NewNop()
	rec := domain.RawRecord{
		"transferId":      "t1",
		"coin":            "USDT",
		"amount":          "50",
		"fromAccountType": "UNIFIED",
		"toAccountType":   "FUND",
		"fromMemberId":    "111",
		"toMemberId":      "222",
		"status":          "SUCCESS",
		"timestamp":       "9000",
	}

	internal := usecase.ParseTransfer(log, rec, false)
	assert.False(t, internal.Universal)
	assert.Equal(t, "UNIFIED", internal.FromAccount)

	universal := usecase.ParseTransfer(log, rec, true)
	assert.True(t, universal.Universal)
	assert.Equal(t, "111", universal.FromUID)
	assert.True(t, universal.Time.Equal(time.UnixMilli(9000)))
}

func TestParseCoinBalancesFiltersZeroBalances(t *testing.T) {
	wallet := domain.RawRecord{
		"list": []any{
			map[string]any{
				"accountType": "UNIFIED",
				"coin": []any{
					map[string]any{"coin": "USDT", "walletBalance": "1500.5", "usdValue": "1500.5"},
					map[string]any{"coin": "DUST", "walletBalance": "0"},
					map[string]any{"coin": "BTC", "walletBalance": "0.01", "usdValue": "500"},
				},
			},
		},
	}

	balances := usecase.ParseCoinBalances(zap.NewNop(), wallet)
	require.Len(t, balances, 2)
	assert.Equal(t, "USDT", balances[0].Coin)
	assert.Equal(t, 1500.5, balances[0].Balance)
	assert.Equal(t, "UNIFIED", balances[0].AccountType)
	assert.Equal(t, "BTC", balances[1].Coin)
}

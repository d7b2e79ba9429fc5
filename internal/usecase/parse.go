package usecase

import (
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

// fieldReader is the single defensive-parsing layer between the exchange's
// loosely-typed raw records and the typed domain entities. Every numeric or
// time field tolerates missing, empty and non-numeric values: the zero value
// is substituted and a warning logged so systematic data loss stays visible.
type fieldReader struct {
	log  *zap.Logger
	kind string
	rec  domain.RawRecord
}

func newFieldReader(log *zap.Logger, kind string, rec domain.RawRecord) *fieldReader {
	return &fieldReader{log: log, kind: kind, rec: rec}
}

func (f *fieldReader) str(key string) string {
	switch v := f.rec[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func (f *fieldReader) float(key string) float64 {
	switch v := f.rec[key].(type) {
	case nil:
		return 0
	case float64:
		return v
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			f.warn(key, v.String())
			return 0
		}
		return n
	case string:
		if v == "" {
			return 0
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			f.warn(key, v)
			return 0
		}
		return n
	default:
		f.warn(key, "")
		return 0
	}
}

// msTime reads a millisecond epoch field. Zero or malformed values produce
// the zero time.
func (f *fieldReader) msTime(key string) time.Time {
	ms := int64(f.float(key))
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (f *fieldReader) boolean(key string) bool {
	switch v := f.rec[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

func (f *fieldReader) warn(key, val string) {
	f.log.Warn("unparseable field, defaulting to zero",
		zap.String("kind", f.kind),
		zap.String("field", key),
		zap.String("value", val))
}

// ParseExecution maps one raw execution record into the domain entity.
func ParseExecution(log *zap.Logger, rec domain.RawRecord) domain.Execution {
	f := newFieldReader(log, "execution", rec)
	return domain.Execution{
		Symbol:      f.str("symbol"),
		Side:        domain.Side(f.str("side")),
		OrderID:     f.str("orderId"),
		ExecID:      f.str("execId"),
		ExecType:    f.str("execType"),
		ExecTime:    f.msTime("execTime"),
		ExecPrice:   f.float("execPrice"),
		ExecQty:     f.float("execQty"),
		ExecValue:   f.float("execValue"),
		ExecFee:     f.float("execFee"),
		FeeCurrency: f.str("feeCurrency"),
		Category:    f.str("category"),
		OrderType:   f.str("orderType"),
		IsMaker:     f.boolean("isMaker"),
	}
}

// ParseClosedPosition maps one raw closed-PnL record into the domain entity.
// The record may carry either split open/close fees or a combined orderFee;
// a combined fee is reported as the close fee.
func ParseClosedPosition(log *zap.Logger, rec domain.RawRecord) domain.ClosedPosition {
	f := newFieldReader(log, "closed-position", rec)
	p := domain.ClosedPosition{
		Symbol:        f.str("symbol"),
		Side:          domain.Side(f.str("side")),
		OrderID:       f.str("orderId"),
		Qty:           f.float("qty"),
		AvgEntryPrice: f.float("avgEntryPrice"),
		AvgExitPrice:  f.float("avgExitPrice"),
		ClosedPnl:     f.float("closedPnl"),
		CreatedTime:   f.msTime("createdTime"),
		UpdatedTime:   f.msTime("updatedTime"),
		OpenFee:       f.float("openFee"),
		CloseFee:      f.float("closeFee"),
		Leverage:      f.str("leverage"),
	}
	if p.OpenFee == 0 && p.CloseFee == 0 {
		p.CloseFee = f.float("orderFee")
	}
	return p
}

// ParseWalletFlow maps one deposit or withdrawal record. Deposits may still
// be pending, in which case neither successAt nor createTime is set.
func ParseWalletFlow(log *zap.Logger, rec domain.RawRecord, direction string) domain.WalletFlow {
	f := newFieldReader(log, "wallet-flow", rec)
	flow := domain.WalletFlow{
		Direction: direction,
		Coin:      f.str("coin"),
		Chain:     f.str("chain"),
		Amount:    f.float("amount"),
		Status:    f.str("status"),
		TxID:      f.str("txID"),
	}
	if t := f.msTime("successAt"); !t.IsZero() {
		flow.Time = t
	} else if t := f.msTime("createTime"); !t.IsZero() {
		flow.Time = t
	} else {
		flow.Pending = true
	}
	return flow
}

// ParseTransfer maps one internal or universal transfer record.
func ParseTransfer(log *zap.Logger, rec domain.RawRecord, universal bool) domain.Transfer {
	f := newFieldReader(log, "transfer", rec)
	return domain.Transfer{
		TransferID:  f.str("transferId"),
		Coin:        f.str("coin"),
		Amount:      f.float("amount"),
		FromAccount: f.str("fromAccountType"),
		ToAccount:   f.str("toAccountType"),
		FromUID:     f.str("fromMemberId"),
		ToUID:       f.str("toMemberId"),
		Status:      f.str("status"),
		Time:        f.msTime("timestamp"),
		Universal:   universal,
	}
}

// ParseConversion maps one convert-history record.
func ParseConversion(log *zap.Logger, rec domain.RawRecord) domain.Conversion {
	f := newFieldReader(log, "conversion", rec)
	return domain.Conversion{
		FromCoin:   f.str("fromCoin"),
		ToCoin:     f.str("toCoin"),
		FromAmount: f.float("fromAmount"),
		ToAmount:   f.float("toAmount"),
		Rate:       f.float("convertRate"),
		Status:     f.str("exchangeStatus"),
		Time:       f.msTime("createdAt"),
	}
}

// ParseCoinBalances flattens a wallet-balance snapshot into per-coin
// balances, keeping only coins with a positive balance.
func ParseCoinBalances(log *zap.Logger, wallet domain.RawRecord) []domain.CoinBalance {
	var out []domain.CoinBalance
	accounts, _ := wallet["list"].([]any)
	for _, a := range accounts {
		acct, ok := a.(map[string]any)
		if !ok {
			continue
		}
		acctType, _ := acct["accountType"].(string)
		coins, _ := acct["coin"].([]any)
		for _, c := range coins {
			rec, ok := c.(map[string]any)
			if !ok {
				continue
			}
			f := newFieldReader(log, "wallet-balance", domain.RawRecord(rec))
			bal := domain.CoinBalance{
				AccountType: acctType,
				Coin:        f.str("coin"),
				Balance:     f.float("walletBalance"),
				Available:   f.float("availableToWithdraw"),
				Locked:      f.float("locked"),
				USDValue:    f.float("usdValue"),
			}
			if bal.Balance > 0 {
				out = append(out, bal)
			}
		}
	}
	return out
}

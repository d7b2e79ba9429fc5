package usecase

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

const (
	// Positions may be opened long before the exchange starts tracking the
	// closed-PnL record, so the candidate window reaches a week back from
	// the position's creation but only a minute past its last update.
	matchLookback  = 7 * 24 * time.Hour
	matchLookahead = 60 * time.Second

	veryShortTrade = time.Second
)

// Matcher correlates raw executions to closed positions to recover the true
// open/close timing the exchange does not report directly.
type Matcher struct {
	log *zap.Logger
}

func NewMatcher(log *zap.Logger) *Matcher {
	return &Matcher{log: log}
}

// Match produces one enriched position per well-formed input position.
// It reads its inputs only; calling it twice on the same inputs yields
// identical output. Output order follows input order.
func (m *Matcher) Match(executions []domain.Execution, positions []domain.ClosedPosition) []domain.EnrichedPosition {
	enriched := make([]domain.EnrichedPosition, 0, len(positions))

	matched := 0
	for _, pos := range positions {
		if pos.Symbol == "" {
			m.log.Warn("skipping malformed closed position", zap.String("orderId", pos.OrderID))
			continue
		}
		ep := m.enrich(executions, pos)
		if ep.HasExecutionMatch {
			matched++
		}
		enriched = append(enriched, ep)
	}

	m.log.Info("matched executions to positions",
		zap.Int("positions", len(enriched)),
		zap.Int("withExecutionTiming", matched))
	return enriched
}

func (m *Matcher) enrich(executions []domain.Execution, pos domain.ClosedPosition) domain.EnrichedPosition {
	candidates := candidateExecutions(executions, pos)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ExecTime.Before(candidates[j].ExecTime)
	})

	openingSide := pos.Side.Opposite()
	var opening, closing []domain.Execution
	for _, e := range candidates {
		if e.Side == openingSide {
			opening = append(opening, e)
		} else {
			closing = append(closing, e)
		}
	}

	// The closing order id is on the position record, so an exact match
	// wins. The opening order id is not reported by the exchange at all;
	// price proximity is the only signal there.
	closingExec, exact := selectClosing(closing, pos)
	openingExec := nearestByPrice(opening, pos.AvgEntryPrice)

	ep := domain.EnrichedPosition{ClosedPosition: pos}
	ep.ExecutionCount = len(candidates)

	if openingExec != nil && closingExec != nil {
		ep.ActualOpenTime = openingExec.ExecTime
		ep.ActualCloseTime = closingExec.ExecTime
		ep.ActualHoldDuration = ep.ActualCloseTime.Sub(ep.ActualOpenTime)
		ep.HoldLabel = ep.ActualHoldDuration.String()
		ep.TotalExecQty = sumQty(candidates)
		ep.HasExecutionMatch = true
		ep.OpeningOrderID = openingExec.OrderID
		ep.ClosingOrderID = closingExec.OrderID
		if exact {
			ep.MatchMethod = domain.MatchOrderID
		} else {
			ep.MatchMethod = domain.MatchPriceTime
		}
		return ep
	}

	// Fallback: trust the exchange's own position timestamps.
	ep.ActualOpenTime = pos.CreatedTime
	ep.ActualCloseTime = pos.UpdatedTime
	ep.ActualHoldDuration = pos.UpdatedTime.Sub(pos.CreatedTime)
	if ep.ActualHoldDuration <= veryShortTrade {
		ep.HoldLabel = "Very Short Trade"
	} else {
		ep.HoldLabel = ep.ActualHoldDuration.String()
	}
	ep.TotalExecQty = pos.Qty
	ep.HasExecutionMatch = false
	ep.MatchMethod = domain.MatchFallback
	return ep
}

// candidateExecutions returns the trade executions for the position's symbol
// inside the asymmetric window around the position's lifetime.
func candidateExecutions(executions []domain.Execution, pos domain.ClosedPosition) []domain.Execution {
	windowStart := pos.CreatedTime.Add(-matchLookback)
	windowEnd := pos.UpdatedTime.Add(matchLookahead)

	var out []domain.Execution
	for _, e := range executions {
		if e.ExecType != "Trade" || e.Symbol != pos.Symbol {
			continue
		}
		if e.ExecTime.Before(windowStart) || e.ExecTime.After(windowEnd) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// selectClosing picks the closing execution: an exact order-id match first,
// otherwise the candidate priced nearest the average exit price. The second
// return reports whether the match was exact.
func selectClosing(closing []domain.Execution, pos domain.ClosedPosition) (*domain.Execution, bool) {
	for i := range closing {
		if closing[i].OrderID == pos.OrderID {
			return &closing[i], true
		}
	}
	return nearestByPrice(closing, pos.AvgExitPrice), false
}

// nearestByPrice returns the execution whose price is strictly closest to
// target; ties keep the earliest execution (the slice is time-sorted).
func nearestByPrice(execs []domain.Execution, target float64) *domain.Execution {
	var best *domain.Execution
	bestDist := math.Inf(1)
	for i := range execs {
		dist := math.Abs(execs[i].ExecPrice - target)
		if dist < bestDist {
			best = &execs[i]
			bestDist = dist
		}
	}
	return best
}

func sumQty(execs []domain.Execution) float64 {
	var total float64
	for _, e := range execs {
		total += e.ExecQty
	}
	return total
}

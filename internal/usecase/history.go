package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

// Per-call page limits the exchange accepts per endpoint.
const (
	limitExecutions = 100
	limitClosedPnL  = 200
	limitFlows      = 50
	limitConvert    = 100
)

// HistoryService accumulates complete record sets from the chunked,
// paginated history endpoints. Fetches are strictly sequential: one call at
// a time with a fixed minimum delay in between, so the service never races
// the exchange's rate limits. A failed chunk is logged and contributes
// nothing; a multi-chunk fetch never aborts because one chunk failed.
type HistoryService struct {
	provider  domain.HistoryProvider
	log       *zap.Logger
	callDelay time.Duration
}

func NewHistoryService(provider domain.HistoryProvider, log *zap.Logger, callDelay time.Duration) *HistoryService {
	return &HistoryService{provider: provider, log: log, callDelay: callDelay}
}

// FetchAll retrieves every record of the given kind in the range, walking it
// in chunks of at most maxSpan. Output preserves chunk order and, within a
// chunk, provider order; it is not globally time-sorted.
func (s *HistoryService) FetchAll(ctx context.Context, kind domain.RecordKind, r domain.TimeRange, limit int, maxSpan time.Duration) []domain.RawRecord {
	var records []domain.RawRecord

	chunkNo := 0
	for chunk := range Chunks(r, maxSpan) {
		chunkNo++
		page, err := s.provider.Retrieve(ctx, kind, domain.RetrieveQuery{
			Start: chunk.Start,
			End:   chunk.End,
			Limit: limit,
		})
		if err != nil {
			s.log.Warn("chunk fetch failed, continuing with remaining chunks",
				zap.String("kind", string(kind)),
				zap.Int("chunk", chunkNo),
				zap.Time("start", chunk.Start),
				zap.Time("end", chunk.End),
				zap.Error(err))
		} else if len(page.Records) > 0 {
			records = append(records, page.Records...)
			s.log.Debug("chunk fetched",
				zap.String("kind", string(kind)),
				zap.Int("chunk", chunkNo),
				zap.Int("records", len(page.Records)))
		}
		s.pause(ctx)
	}

	s.log.Info("history fetch complete",
		zap.String("kind", string(kind)),
		zap.Int("chunks", chunkNo),
		zap.Int("records", len(records)))
	return records
}

// FetchPaged retrieves every record of an index-paged kind, incrementing the
// page index until a short or empty page signals exhaustion.
func (s *HistoryService) FetchPaged(ctx context.Context, kind domain.RecordKind, limit int) []domain.RawRecord {
	var records []domain.RawRecord

	for page := 1; ; page++ {
		p, err := s.provider.Retrieve(ctx, kind, domain.RetrieveQuery{Limit: limit, Page: page})
		if err != nil {
			s.log.Warn("page fetch failed, stopping pagination",
				zap.String("kind", string(kind)),
				zap.Int("page", page),
				zap.Error(err))
			break
		}
		records = append(records, p.Records...)
		if len(p.Records) < limit {
			break
		}
		s.pause(ctx)
	}

	s.log.Info("history fetch complete",
		zap.String("kind", string(kind)),
		zap.Int("records", len(records)))
	return records
}

// FuturesActivity fetches the linear executions and closed positions for the
// range in one pass, parsed into domain entities.
func (s *HistoryService) FuturesActivity(ctx context.Context, r domain.TimeRange) ([]domain.Execution, []domain.ClosedPosition) {
	rawExecs := s.FetchAll(ctx, domain.KindExecutionLinear, r, limitExecutions, SpanWeek)
	rawPositions := s.FetchAll(ctx, domain.KindClosedPnL, r, limitClosedPnL, SpanWeek)

	execs := make([]domain.Execution, 0, len(rawExecs))
	for _, rec := range rawExecs {
		execs = append(execs, ParseExecution(s.log, rec))
	}
	positions := make([]domain.ClosedPosition, 0, len(rawPositions))
	for _, rec := range rawPositions {
		positions = append(positions, ParseClosedPosition(s.log, rec))
	}
	return execs, positions
}

// SpotTrades fetches the spot execution history for the range.
func (s *HistoryService) SpotTrades(ctx context.Context, r domain.TimeRange) []domain.Execution {
	raw := s.FetchAll(ctx, domain.KindExecutionSpot, r, limitExecutions, SpanWeek)
	trades := make([]domain.Execution, 0, len(raw))
	for _, rec := range raw {
		trades = append(trades, ParseExecution(s.log, rec))
	}
	return trades
}

// WalletFlows fetches on-chain deposits and withdrawals plus the exchange's
// internal (off-chain) deposits for the range.
func (s *HistoryService) WalletFlows(ctx context.Context, r domain.TimeRange) []domain.WalletFlow {
	var flows []domain.WalletFlow
	for _, rec := range s.FetchAll(ctx, domain.KindDepositRecords, r, limitFlows, SpanMonth) {
		flows = append(flows, ParseWalletFlow(s.log, rec, "Deposit (Inflow)"))
	}
	for _, rec := range s.FetchAll(ctx, domain.KindInternalDeposits, r, limitFlows, SpanMonth) {
		flows = append(flows, ParseWalletFlow(s.log, rec, "Deposit (Inflow)"))
	}
	for _, rec := range s.FetchAll(ctx, domain.KindWithdrawalRecords, r, limitFlows, SpanMonth) {
		flows = append(flows, ParseWalletFlow(s.log, rec, "Withdrawal (Outflow)"))
	}
	return flows
}

// Transfers fetches internal (between account types) and universal (between
// UIDs) transfer records for the range.
func (s *HistoryService) Transfers(ctx context.Context, r domain.TimeRange) []domain.Transfer {
	var transfers []domain.Transfer
	for _, rec := range s.FetchAll(ctx, domain.KindInternalTransfers, r, limitFlows, SpanWeek) {
		transfers = append(transfers, ParseTransfer(s.log, rec, false))
	}
	for _, rec := range s.FetchAll(ctx, domain.KindUniversalTransfers, r, limitFlows, SpanWeek) {
		transfers = append(transfers, ParseTransfer(s.log, rec, true))
	}
	return transfers
}

// Conversions fetches the full convert history via index pagination.
func (s *HistoryService) Conversions(ctx context.Context) []domain.Conversion {
	raw := s.FetchPaged(ctx, domain.KindConvertHistory, limitConvert)
	out := make([]domain.Conversion, 0, len(raw))
	for _, rec := range raw {
		out = append(out, ParseConversion(s.log, rec))
	}
	return out
}

// CoinBalances fetches the current wallet snapshot for one account type.
// A transport failure yields an empty snapshot, consistent with the
// best-effort chunk policy.
func (s *HistoryService) CoinBalances(ctx context.Context, accountType string) []domain.CoinBalance {
	wallet, err := s.provider.WalletBalance(ctx, accountType)
	if err != nil {
		s.log.Warn("wallet balance fetch failed",
			zap.String("accountType", accountType),
			zap.Error(err))
		return nil
	}
	return ParseCoinBalances(s.log, wallet)
}

// pause observes the fixed inter-call delay, returning early on cancel.
func (s *HistoryService) pause(ctx context.Context) {
	if s.callDelay <= 0 {
		return
	}
	t := time.NewTimer(s.callDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

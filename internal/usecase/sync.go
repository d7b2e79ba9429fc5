package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

// SyncRanges carries the fetch ranges resolved from configuration.
type SyncRanges struct {
	Futures   domain.TimeRange
	Spot      domain.TimeRange
	Transfers domain.TimeRange
	Flows     domain.TimeRange
}

// SyncSummary reports what one run produced per sheet.
type SyncSummary struct {
	Futures     int
	Spot        int
	Flows       int
	Transfers   int
	Conversions int
	Balances    int
	RunID       int64
}

// SyncService runs one full journal sync: fetch, reconcile, transform, and
// hand the rows to the sink and the report store. Sections are independent;
// a section that yields nothing is skipped, never fatal.
type SyncService struct {
	history *HistoryService
	matcher *Matcher
	sink    domain.RowSink
	reports domain.ReportRepository
	log     *zap.Logger
	now     func() time.Time
}

func NewSyncService(history *HistoryService, matcher *Matcher, sink domain.RowSink, reports domain.ReportRepository, log *zap.Logger) *SyncService {
	return &SyncService{
		history: history,
		matcher: matcher,
		sink:    sink,
		reports: reports,
		log:     log,
		now:     time.Now,
	}
}

// Run executes one sync over the given ranges and returns a summary. Only a
// failure to record the run in the report store is fatal; every data section
// is best-effort.
func (s *SyncService) Run(ctx context.Context, ranges SyncRanges) (*SyncSummary, error) {
	started := s.now()
	runID, err := s.reports.SaveRun(ctx, &domain.SyncRun{StartedAt: started})
	if err != nil {
		return nil, fmt.Errorf("record sync run: %w", err)
	}

	summary := &SyncSummary{RunID: runID}
	updated := started

	balances := s.history.CoinBalances(ctx, "UNIFIED")
	totalBalance := TotalBalance(balances)
	summary.Balances = len(balances)

	executions, positions := s.history.FuturesActivity(ctx, ranges.Futures)
	enriched := s.matcher.Match(executions, positions)
	summary.Futures = len(enriched)

	spotTrades := s.history.SpotTrades(ctx, ranges.Spot)
	summary.Spot = len(spotTrades)

	flows := s.history.WalletFlows(ctx, ranges.Flows)
	summary.Flows = len(flows)

	transfers := s.history.Transfers(ctx, ranges.Transfers)
	summary.Transfers = len(transfers)

	conversions := s.history.Conversions(ctx)
	summary.Conversions = len(conversions)

	stats := ComputeStats(enriched, len(spotTrades), len(flows))

	sections := 0
	write := func(sheet string, headers []string, rows []domain.Row) {
		if len(rows) == 0 {
			s.log.Info("no rows for sheet, skipping", zap.String("sheet", sheet))
			return
		}
		if err := s.sink.Overwrite(sheet, headers, rows); err != nil {
			s.log.Error("sink write failed", zap.String("sheet", sheet), zap.Error(err))
			return
		}
		if err := s.reports.ReplaceSection(ctx, runID, sheet, headers, rows); err != nil {
			s.log.Error("report store write failed", zap.String("sheet", sheet), zap.Error(err))
			return
		}
		sections++
		s.log.Info("sheet updated", zap.String("sheet", sheet), zap.Int("rows", len(rows)))
	}

	write(SheetOverview, OverviewHeaders, OverviewRows(stats, totalBalance, updated))
	write(SheetFutures, FuturesHeaders, FuturesRows(enriched, totalBalance, updated))
	write(SheetSpot, SpotHeaders, SpotRows(spotTrades, updated))
	write(SheetFlows, FlowHeaders, FlowRows(flows, updated))
	write(SheetTransfers, TransferHeaders, TransferRows(transfers, updated))
	write(SheetConversion, ConversionHeaders, ConversionRows(conversions, updated))
	write(SheetAllocation, AllocationHeaders, AllocationRows(balances, updated))

	if err := s.reports.FinishRun(ctx, runID, s.now(), sections); err != nil {
		s.log.Error("finish sync run failed", zap.Error(err))
	}

	s.log.Info("sync complete",
		zap.Int64("runId", runID),
		zap.Int("sections", sections),
		zap.Int("futuresPositions", summary.Futures),
		zap.Int("spotTrades", summary.Spot),
		zap.Int("walletFlows", summary.Flows))
	return summary, nil
}

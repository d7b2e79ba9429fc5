package domain

import (
	"context"
	"time"
)

// RetrieveQuery bounds one retrieval call. Time-ranged endpoints use
// Start/End; index-paged endpoints use Page starting at 1.
type RetrieveQuery struct {
	Start time.Time
	End   time.Time
	Limit int
	Page  int
}

// Page is one retrieval call's result. More indicates the endpoint reported
// further records beyond this page.
type Page struct {
	Records []RawRecord
	More    bool
}

// HistoryProvider is the retrieval capability over the exchange's historical
// account endpoints.
type HistoryProvider interface {
	Retrieve(ctx context.Context, kind RecordKind, q RetrieveQuery) (Page, error)
	WalletBalance(ctx context.Context, accountType string) (RawRecord, error)
	ServerTime(ctx context.Context) (time.Time, error)
}

// RowSink persists transformed rows under a named sheet with a fixed column
// order. Overwrite replaces the sheet's contents; Append adds rows, writing
// the header only for a new sheet.
type RowSink interface {
	Overwrite(sheet string, headers []string, rows []Row) error
	Append(sheet string, headers []string, rows []Row) error
}

// ReportRepository stores the transformed output of sync runs.
type ReportRepository interface {
	SaveRun(ctx context.Context, run *SyncRun) (int64, error)
	FinishRun(ctx context.Context, runID int64, finishedAt time.Time, sections int) error
	ReplaceSection(ctx context.Context, runID int64, section string, headers []string, rows []Row) error
	LatestRun(ctx context.Context) (*SyncRun, error)
	SectionRows(ctx context.Context, runID int64, section string) ([]string, []Row, error)
}

// PrivateStream delivers the account's private websocket topics. Callbacks
// must be registered before Run; each receives the raw records of one
// message.
type PrivateStream interface {
	OnExecution(func(records []RawRecord))
	OnPosition(func(records []RawRecord))
	OnWallet(func(records []RawRecord))
	Run(ctx context.Context) error
}

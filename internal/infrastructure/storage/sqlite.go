package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

// SQLiteStore persists sync runs and their transformed report rows so a
// rerun can be compared against what was last written to the sink.
// It implements domain.ReportRepository.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			sections INTEGER NOT NULL DEFAULT 0,
			notes TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS report_rows (
			run_id INTEGER NOT NULL,
			section TEXT NOT NULL,
			seq INTEGER NOT NULL,
			headers TEXT NOT NULL,
			row TEXT NOT NULL,
			PRIMARY KEY (run_id, section, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_report_rows_section ON report_rows(run_id, section);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.SyncRun) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (started_at, notes) VALUES (?, ?)`,
		run.StartedAt, run.Notes)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID int64, finishedAt time.Time, sections int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs SET finished_at = ?, sections = ? WHERE id = ?`,
		finishedAt, sections, runID)
	return err
}

// ReplaceSection atomically swaps a section's rows for the run. The row map
// is stored as JSON; the header list is stored alongside so the column order
// survives round-trips.
func (s *SQLiteStore) ReplaceSection(ctx context.Context, runID int64, section string, headers []string, rows []domain.Row) error {
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM report_rows WHERE run_id = ? AND section = ?`, runID, section); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO report_rows (run_id, section, seq, headers, row) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		rowJSON, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, runID, section, i, string(headersJSON), string(rowJSON)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*domain.SyncRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, COALESCE(finished_at, started_at), sections, COALESCE(notes, '')
		 FROM sync_runs ORDER BY id DESC LIMIT 1`)

	var run domain.SyncRun
	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Sections, &run.Notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) SectionRows(ctx context.Context, runID int64, section string) ([]string, []domain.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT headers, row FROM report_rows WHERE run_id = ? AND section = ? ORDER BY seq`,
		runID, section)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var headers []string
	var out []domain.Row
	for rows.Next() {
		var headersJSON, rowJSON string
		if err := rows.Scan(&headersJSON, &rowJSON); err != nil {
			return nil, nil, err
		}
		if headers == nil {
			if err := json.Unmarshal([]byte(headersJSON), &headers); err != nil {
				return nil, nil, err
			}
		}
		var r domain.Row
		if err := json.Unmarshal([]byte(rowJSON), &r); err != nil {
			return nil, nil, err
		}
		out = append(out, r)
	}
	return headers, out, rows.Err()
}

package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vitos/bybit_trade_journal/internal/domain"
)

// CSVSink writes each sheet to its own CSV file under a base directory.
// It implements domain.RowSink: Overwrite replaces the file, Append adds
// rows and writes the header only when the file is new.
type CSVSink struct {
	dir string
	mu  sync.Mutex
}

func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sink directory: %w", err)
	}
	return &CSVSink{dir: dir}, nil
}

func (s *CSVSink) Overwrite(sheet string, headers []string, rows []domain.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Create(s.path(sheet))
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write(headers); err != nil {
		return err
	}
	return writeRows(w, headers, rows)
}

func (s *CSVSink) Append(sheet string, headers []string, rows []domain.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(sheet)
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if isNew {
		if err := w.Write(headers); err != nil {
			return err
		}
	}
	return writeRows(w, headers, rows)
}

func writeRows(w *csv.Writer, headers []string, rows []domain.Row) error {
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			record[i] = row[h]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}

// path maps a sheet name like "Futures History" to futures_history.csv.
func (s *CSVSink) path(sheet string) string {
	name := strings.ToLower(sheet)
	name = strings.NewReplacer(" ", "_", "/", "_", "-", "_").Replace(name)
	return filepath.Join(s.dir, name+".csv")
}

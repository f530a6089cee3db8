package memory

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"budgetdash/internal/core"
	"budgetdash/internal/sources"
	"budgetdash/internal/sources/csvfile"
)

var _ sources.RowReader = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows []core.RawRow
}

func New(rows []core.RawRow) *Store {
	return &Store{rows: cloneRows(rows)}
}

// NewFromFiles seeds the store from seed_budget.csv in base, falling back to
// a small built-in dataset when the file is missing or unreadable.
func NewFromFiles(base string, cols sources.Columns) *Store {
	path := filepath.Join(base, "seed_budget.csv")
	f, err := os.Open(path)
	if err != nil {
		return New(SampleRows())
	}
	defer f.Close()
	rows, err := csvfile.Parse(f, ',', cols)
	if err != nil || len(rows) == 0 {
		slog.Warn("Ignoring seed file", "path", path, "error", err)
		return New(SampleRows())
	}
	return New(rows)
}

// ReadRows returns a copy of the stored rows.
func (s *Store) ReadRows(_ context.Context) ([]core.RawRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.rows), nil
}

// Set replaces the stored rows; the next reload picks them up.
func (s *Store) Set(rows []core.RawRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = cloneRows(rows)
}

// SampleRows is the fallback dataset used for local runs.
func SampleRows() []core.RawRow {
	row := func(cat, account, center, y22, y23, y24 string) core.RawRow {
		return core.RawRow{
			Category:   cat,
			Account:    account,
			CostCenter: center,
			Values:     map[core.Year]string{"2022": y22, "2023": y23, "2024": y24},
		}
	}
	return []core.RawRow{
		row("FV", "Personalaufwand", "Verwaltung", "1.250.000,00", "1.310.000,00", "1.402.500,00"),
		row("FV", "Personalaufwand", "IT", "830.000,00", "905.000,00", "990.000,00"),
		row("FV", "Mieten", "Verwaltung", "240.000,00", "246.000,00", "252.150,00"),
		row("FV", "Energie", "Verwaltung", "95.400,50", "181.200,00", "160.000,00"),
		row("FV", "Software", "IT", "120.000,00", "135.000,00", "150.000,00"),
		row("FV", "Reisekosten", "Vertrieb", "45.000,00", "52.000,00", "58.000,00"),
		row("FV", "Personalaufwand", "Vertrieb", "610.000,00", "640.000,00", "655.000,00"),
		row("FV", "Werbung", "Vertrieb", "310.000,00", "280.000,00", "295.000,00"),
		row("FV", "Zinserträge", "Finanzen", "-12.000,00", "-18.500,00", "-21.000,00"),
		row("EV", "Personalaufwand", "Verwaltung", "1.190.000,00", "1.280.000,00", "0"),
	}
}

func cloneRows(in []core.RawRow) []core.RawRow {
	out := make([]core.RawRow, len(in))
	for i, r := range in {
		values := make(map[core.Year]string, len(r.Values))
		for y, v := range r.Values {
			values[y] = v
		}
		r.Values = values
		out[i] = r
	}
	return out
}

package store

import (
	"slices"
	"sync/atomic"
	"time"

	"budgetdash/internal/core"
)

// Dataset is an immutable snapshot of the loaded records.
type Dataset struct {
	Records  []core.BudgetRecord
	Years    []core.Year
	Source   string
	LoadedAt time.Time
}

// Store holds the current dataset. Replacing it never disturbs readers that
// still hold the previous snapshot.
type Store struct {
	current atomic.Pointer[Dataset]
}

// New returns a store holding an empty dataset.
func New() *Store {
	s := &Store{}
	s.current.Store(&Dataset{})
	return s
}

// Replace swaps in a new dataset built from records. The slice is copied.
func (s *Store) Replace(records []core.BudgetRecord, source string) (*Dataset, error) {
	years, err := YearsOf(records)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{
		Records:  slices.Clone(records),
		Years:    years,
		Source:   source,
		LoadedAt: time.Now().UTC(),
	}
	s.current.Store(ds)
	return ds, nil
}

// Has reports whether any record carries value for the given dimension.
func (d *Dataset) Has(dim core.Dimension, value string) bool {
	for _, r := range d.Records {
		if r.Field(dim) == value {
			return true
		}
	}
	return false
}

// Snapshot returns the current dataset.
func (s *Store) Snapshot() *Dataset {
	return s.current.Load()
}

// YearsAvailable returns the current dataset's years.
func (s *Store) YearsAvailable() []core.Year {
	return slices.Clone(s.Snapshot().Years)
}

// Loaded reports whether a non-empty dataset is in place.
func (s *Store) Loaded() bool {
	return len(s.Snapshot().Records) > 0
}

// Query runs q against the current snapshot.
func (s *Store) Query(q core.AggregationQuery) []core.KeyTotal {
	return s.Snapshot().Query(q)
}

// Query runs q against this snapshot.
func (d *Dataset) Query(q core.AggregationQuery) []core.KeyTotal {
	return core.Run(d.Records, q)
}

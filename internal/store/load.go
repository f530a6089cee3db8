// Package store owns the normalized budget dataset and answers aggregation
// queries against it.
package store

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"budgetdash/internal/core"
)

// DefaultSentinel is the category value marking rows that belong to the dataset.
const DefaultSentinel = "FV"

// LoadOptions controls how raw rows become records.
type LoadOptions struct {
	Sentinel string
	Policy   core.ParsePolicy
	// Years lists the year columns every record must carry. Empty means the
	// years of the first kept row.
	Years []core.Year
	// OnSkip is called for each row dropped under SkipRow.
	OnSkip func(*core.ParseError)
}

// LoadReport counts what happened to the input rows.
type LoadReport struct {
	Read     int
	Kept     int
	Filtered int
	Skipped  int
}

// Load keeps the rows flagged with the sentinel category, parses every year
// value and returns the records sorted by account, then cost center.
func Load(rows []core.RawRow, opts LoadOptions) ([]core.BudgetRecord, LoadReport, error) {
	if opts.Sentinel == "" {
		opts.Sentinel = DefaultSentinel
	}
	if opts.Policy == "" {
		opts.Policy = core.RejectDataset
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, LoadReport{}, err
	}

	report := LoadReport{Read: len(rows)}
	years := core.NormalizeYears(opts.Years)
	records := make([]core.BudgetRecord, 0, len(rows))

	for i, row := range rows {
		if strings.TrimSpace(row.Category) != opts.Sentinel {
			report.Filtered++
			continue
		}
		if len(years) == 0 {
			for y := range row.Values {
				years = append(years, y)
			}
			years = core.NormalizeYears(years)
		}

		rec, perr := parseRow(i, row, years)
		if perr != nil {
			if opts.Policy == core.RejectDataset {
				return nil, report, perr
			}
			report.Skipped++
			if opts.OnSkip != nil {
				opts.OnSkip(perr)
			}
			continue
		}
		records = append(records, rec)
	}

	slices.SortStableFunc(records, func(a, b core.BudgetRecord) int {
		if c := cmp.Compare(a.Account, b.Account); c != 0 {
			return c
		}
		return cmp.Compare(a.CostCenter, b.CostCenter)
	})
	report.Kept = len(records)
	return records, report, nil
}

func parseRow(idx int, row core.RawRow, years []core.Year) (core.BudgetRecord, *core.ParseError) {
	rec := core.BudgetRecord{
		Account:      strings.TrimSpace(row.Account),
		CostCenter:   strings.TrimSpace(row.CostCenter),
		AmountByYear: make(map[core.Year]int64, len(years)),
	}
	for _, y := range years {
		raw, ok := row.Values[y]
		if !ok {
			return core.BudgetRecord{}, &core.ParseError{Row: idx, Year: y, Value: ""}
		}
		n, err := core.ParseLocaleAmount(raw)
		if err != nil {
			return core.BudgetRecord{}, &core.ParseError{Row: idx, Year: y, Value: raw}
		}
		rec.AmountByYear[y] = n
	}
	return rec, nil
}

// ErrYearMismatch is returned when a dataset mixes records with different year sets.
var ErrYearMismatch = errors.New("records carry different year sets")

// YearsOf returns the common year set of records, or ErrYearMismatch.
func YearsOf(records []core.BudgetRecord) ([]core.Year, error) {
	if len(records) == 0 {
		return nil, nil
	}
	years := records[0].Years()
	for i, r := range records[1:] {
		if !slices.Equal(years, r.Years()) {
			return nil, fmt.Errorf("%w: record %d has %v, want %v", ErrYearMismatch, i+1, r.Years(), years)
		}
	}
	return years, nil
}

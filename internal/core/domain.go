package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	DimensionAccount    Dimension = "account"
	DimensionCostCenter Dimension = "cost_center"

	RankTop    RankMode = "top"
	RankBottom RankMode = "bottom"

	// RejectDataset aborts the whole load on the first unparsable value.
	RejectDataset ParsePolicy = "reject"
	// SkipRow drops the offending row and keeps loading.
	SkipRow ParsePolicy = "skip"
)

type (
	// Year is a four-digit year label as it appears in the feed ("2023").
	Year string

	// Dimension names one of the two groupable categorical fields.
	Dimension string

	RankMode string

	ParsePolicy string

	// RawRow is a feed row before normalization. Values holds one
	// locale-formatted decimal string per year.
	RawRow struct {
		Category   string
		Account    string
		CostCenter string
		Values     map[Year]string
	}

	// BudgetRecord is a normalized, immutable budget row.
	BudgetRecord struct {
		Account      string
		CostCenter   string
		AmountByYear map[Year]int64
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptySelection  = errors.New("empty year selection")
	ErrUnknownKey      = errors.New("unknown key")
	ErrUnknownYear     = errors.New("unknown year")
	ErrInvalidRankMode = errors.New("invalid rank mode")
	ErrInvalidEvent    = errors.New("invalid event")
)

// ParseError reports a year value that could not be turned into an integer.
type ParseError struct {
	Row   int
	Year  Year
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: cannot parse %s value %q", e.Row, e.Year, e.Value)
}

func (e *ParseError) Unwrap() error { return ErrInvalidAmount }

// EmptySelectionError is returned when a year change would leave the
// selection empty or point outside the available years.
type EmptySelectionError struct {
	Unknown []Year
}

func (e *EmptySelectionError) Error() string {
	if len(e.Unknown) > 0 {
		return fmt.Sprintf("year selection contains unavailable years: %s", joinYears(e.Unknown))
	}
	return ErrEmptySelection.Error()
}

func (e *EmptySelectionError) Unwrap() error {
	if len(e.Unknown) > 0 {
		return ErrUnknownYear
	}
	return ErrEmptySelection
}

// UnknownKeyError is returned for a click on a key the view does not show.
type UnknownKeyError struct {
	Dimension Dimension
	Key       string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("%s %q is not part of the displayed result", e.Dimension, e.Key)
}

func (e *UnknownKeyError) Unwrap() error { return ErrUnknownKey }

func (d Dimension) Validate() error {
	switch d {
	case DimensionAccount, DimensionCostCenter:
		return nil
	default:
		return fmt.Errorf("invalid dimension %q", string(d))
	}
}

func (m RankMode) Validate() error {
	switch m {
	case RankTop, RankBottom:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRankMode, string(m))
	}
}

// ParseRankMode accepts "top"/"bottom" and the legacy toggle values "top10"/"low10".
func ParseRankMode(s string) (RankMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "top10":
		return RankTop, nil
	case "bottom", "low10", "lowest":
		return RankBottom, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRankMode, s)
	}
}

func (p ParsePolicy) Validate() error {
	switch p {
	case RejectDataset, SkipRow:
		return nil
	default:
		return fmt.Errorf("invalid parse error policy %q", string(p))
	}
}

// Field returns the record's value for the given dimension. Asking for a
// dimension that does not exist is a programming error.
func (r BudgetRecord) Field(d Dimension) string {
	switch d {
	case DimensionAccount:
		return r.Account
	case DimensionCostCenter:
		return r.CostCenter
	default:
		panic(fmt.Sprintf("core: unknown dimension %q", string(d)))
	}
}

// Years returns the record's years in ascending order.
func (r BudgetRecord) Years() []Year {
	years := make([]Year, 0, len(r.AmountByYear))
	for y := range r.AmountByYear {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}

// NormalizeYears deduplicates and sorts a year list. Blank entries are dropped.
func NormalizeYears(in []Year) []Year {
	out := make([]Year, 0, len(in))
	for _, y := range in {
		y = Year(strings.TrimSpace(string(y)))
		if y == "" {
			continue
		}
		out = append(out, y)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func joinYears(years []Year) string {
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = string(y)
	}
	return strings.Join(parts, ", ")
}

// JoinYears renders a year list the way view titles show it ("2022, 2023").
func JoinYears(years []Year) string { return joinYears(years) }

package sources

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"budgetdash/internal/core"
)

// Ports for inbound dataset adapters.
type (
	// RowReader returns the raw rows of a budget feed, header already resolved.
	RowReader interface {
		ReadRows(ctx context.Context) ([]core.RawRow, error)
	}

	// RecordReader returns rows that were normalized before they were stored.
	RecordReader interface {
		ReadRecords(ctx context.Context) ([]core.BudgetRecord, error)
	}
)

// Columns maps feed headers onto RawRow fields. Years maps each year to the
// header of the column holding its value.
type Columns struct {
	Category   string
	Account    string
	CostCenter string
	Years      map[core.Year]string
}

// DefaultColumns matches the headers of the budget export.
func DefaultColumns() Columns {
	return Columns{
		Category:   "EV/FV",
		Account:    "TEXT_KONTO",
		CostCenter: "TEXT_VASTELLE",
		Years: map[core.Year]string{
			"2022": "Erfolg 2022",
			"2023": "BVA 2023",
			"2024": "BVA 2024",
		},
	}
}

// ParseYearColumns parses "2022=Erfolg 2022,2023=BVA 2023" into a year map.
func ParseYearColumns(s string) (map[core.Year]string, error) {
	out := map[core.Year]string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		year, header, ok := strings.Cut(part, "=")
		year, header = strings.TrimSpace(year), strings.TrimSpace(header)
		if !ok || year == "" || header == "" {
			return nil, fmt.Errorf("invalid year column %q (want YEAR=HEADER)", part)
		}
		if _, dup := out[core.Year(year)]; dup {
			return nil, fmt.Errorf("duplicate year %s", year)
		}
		out[core.Year(year)] = header
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no year columns configured")
	}
	return out, nil
}

// YearList returns the configured years in ascending order.
func (c Columns) YearList() []core.Year {
	years := make([]core.Year, 0, len(c.Years))
	for y := range c.Years {
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })
	return years
}

// MapRows resolves header positions once and converts every data row.
// Columns that are not configured are ignored.
func MapRows(header []string, rows [][]string, cols Columns) ([]core.RawRow, error) {
	colCategory := indexOf(header, cols.Category)
	colAccount := indexOf(header, cols.Account)
	colCostCenter := indexOf(header, cols.CostCenter)

	var missing []string
	if colCategory == -1 {
		missing = append(missing, cols.Category)
	}
	if colAccount == -1 {
		missing = append(missing, cols.Account)
	}
	if colCostCenter == -1 {
		missing = append(missing, cols.CostCenter)
	}
	yearCols := make(map[core.Year]int, len(cols.Years))
	for _, y := range cols.YearList() {
		idx := indexOf(header, cols.Years[y])
		if idx == -1 {
			missing = append(missing, cols.Years[y])
			continue
		}
		yearCols[y] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected header: missing %s; got headers=%v", strings.Join(missing, ","), header)
	}

	out := make([]core.RawRow, 0, len(rows))
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		raw := core.RawRow{
			Category:   strings.TrimSpace(safeGet(row, colCategory)),
			Account:    strings.TrimSpace(safeGet(row, colAccount)),
			CostCenter: strings.TrimSpace(safeGet(row, colCostCenter)),
			Values:     make(map[core.Year]string, len(yearCols)),
		}
		for y, idx := range yearCols {
			raw.Values[y] = safeGet(row, idx)
		}
		out = append(out, raw)
	}
	return out, nil
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

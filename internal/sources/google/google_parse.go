package google

import (
	"budgetdash/internal/core"
	"budgetdash/internal/sources"
)

// parseBudget converts a values matrix (as returned by Sheets API) into raw
// rows. The first row must be the header.
func parseBudget(values [][]interface{}, cols sources.Columns) ([]core.RawRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	header := toStrings(values[0])
	rows := make([][]string, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		rows = append(rows, toStrings(values[i]))
	}
	return sources.MapRows(header, rows, cols)
}

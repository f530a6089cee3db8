// Package csvfile reads the budget export from a delimited text file.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"budgetdash/internal/core"
	"budgetdash/internal/sources"
)

var _ sources.RowReader = (*Reader)(nil)

// Reader reads rows from a CSV file on every call, so edits on disk are
// picked up by the next reload.
type Reader struct {
	path    string
	comma   rune
	columns sources.Columns
}

// New returns a reader for path. An empty delimiter means ",".
func New(path, delimiter string, cols sources.Columns) (*Reader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("missing CSV path")
	}
	comma := ','
	if delimiter != "" {
		r := []rune(delimiter)
		if len(r) != 1 {
			return nil, fmt.Errorf("invalid CSV delimiter %q", delimiter)
		}
		comma = r[0]
	}
	return &Reader{path: path, comma: comma, columns: cols}, nil
}

// ReadRows opens the file and parses it.
func (r *Reader) ReadRows(ctx context.Context) ([]core.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()
	return Parse(f, r.comma, r.columns)
}

// Path returns the file the reader loads from.
func (r *Reader) Path() string { return r.path }

// Parse reads a header line followed by data rows.
func Parse(in io.Reader, comma rune, cols sources.Columns) ([]core.RawRow, error) {
	cr := csv.NewReader(in)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty CSV: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return sources.MapRows(header, records, cols)
}

package sources

import (
	"strings"
	"testing"

	"budgetdash/internal/core"
)

func TestMapRows(t *testing.T) {
	header := []string{"EV/FV", "TEXT_KONTO", "Ignored", "TEXT_VASTELLE", "Erfolg 2022", "BVA 2023", "BVA 2024"}
	rows := [][]string{
		{"FV", " Personal ", "x", "KST 1", "1.234,56", "2.000,00", "3,5"},
		{"", "", "", "", "", "", ""},
		{"EV", "Miete", "x", "KST 2", "10", "20"},
	}

	got, err := MapRows(header, rows, DefaultColumns())
	if err != nil {
		t.Fatalf("MapRows() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected blank row to be dropped, got %d rows", len(got))
	}
	first := got[0]
	if first.Category != "FV" || first.Account != "Personal" || first.CostCenter != "KST 1" {
		t.Errorf("unexpected first row: %+v", first)
	}
	if first.Values["2022"] != "1.234,56" || first.Values["2024"] != "3,5" {
		t.Errorf("unexpected values: %v", first.Values)
	}
	if v, ok := got[1].Values["2024"]; !ok || v != "" {
		t.Errorf("short row should carry empty value for 2024, got %q (present=%v)", v, ok)
	}
}

func TestMapRows_MissingHeader(t *testing.T) {
	_, err := MapRows([]string{"EV/FV", "TEXT_KONTO", "Erfolg 2022"}, nil, DefaultColumns())
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	for _, col := range []string{"TEXT_VASTELLE", "BVA 2023", "BVA 2024"} {
		if !strings.Contains(err.Error(), col) {
			t.Errorf("error %q does not name missing column %s", err, col)
		}
	}
}

func TestParseYearColumns(t *testing.T) {
	got, err := ParseYearColumns("2023=BVA 2023, 2022 = Erfolg 2022,")
	if err != nil {
		t.Fatalf("ParseYearColumns() error = %v", err)
	}
	if len(got) != 2 || got["2022"] != "Erfolg 2022" || got["2023"] != "BVA 2023" {
		t.Fatalf("unexpected mapping: %v", got)
	}

	cols := Columns{Years: got}
	years := cols.YearList()
	if len(years) != 2 || years[0] != core.Year("2022") {
		t.Errorf("YearList() = %v", years)
	}

	for _, bad := range []string{"", "2022", "2022=", "2022=a,2022=b"} {
		if _, err := ParseYearColumns(bad); err == nil {
			t.Errorf("ParseYearColumns(%q) expected error", bad)
		}
	}
}

package google

import (
	"context"
	"testing"

	"budgetdash/internal/sources"
)

// Build a small matrix emulating the budget export sheet
func TestParseBudget_Example(t *testing.T) {
	values := [][]interface{}{
		{"EV/FV", "TEXT_KONTO", "TEXT_VASTELLE", "Erfolg 2022", "BVA 2023", "BVA 2024"},
		{"FV", "Personal", "KST 1", "1.234,56", "2.000,00", "3.000"},
		{"EV", "Miete", "KST 2", 10, 20, 30.5},
		{},
		{"FV", "Sachkosten", "KST 1", "0", "0"},
	}
	rows, err := parseBudget(values, sources.DefaultColumns())
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Account != "Personal" || rows[0].Values["2023"] != "2.000,00" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Values["2024"] != "30.5" {
		t.Fatalf("numeric cell rendered as %q", rows[1].Values["2024"])
	}
	if rows[2].Values["2024"] != "" {
		t.Fatalf("missing trailing cell should be empty, got %q", rows[2].Values["2024"])
	}
}

func TestParseBudget_Empty(t *testing.T) {
	rows, err := parseBudget(nil, sources.DefaultColumns())
	if err != nil || rows != nil {
		t.Fatalf("expected no rows and no error, got %v, %v", rows, err)
	}
}

func TestParseBudget_BadHeader(t *testing.T) {
	values := [][]interface{}{{"Primary", "Secondary", "Jan"}}
	if _, err := parseBudget(values, sources.DefaultColumns()); err == nil {
		t.Fatal("expected header error")
	}
}

func TestNewFromEnv_MissingSpreadsheet(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	if _, err := NewFromEnv(context.Background(), sources.DefaultColumns()); err == nil {
		t.Fatal("expected error without GOOGLE_SPREADSHEET_ID")
	}
}

func TestReadRows_NoService(t *testing.T) {
	c := New(nil, "id", "Budget", sources.DefaultColumns())
	if _, err := c.ReadRows(context.Background()); err == nil {
		t.Fatal("expected error when service is nil")
	}
}

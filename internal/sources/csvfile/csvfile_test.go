package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budgetdash/internal/sources"
)

const sample = "\ufeffEV/FV,TEXT_KONTO,TEXT_VASTELLE,Erfolg 2022,BVA 2023,BVA 2024\n" +
	"FV,Personal,KST 1,\"1.234,56\",\"2.000,00\",\"3.000\"\n" +
	"EV,Miete,KST 2,10,20,30\n"

func TestParse(t *testing.T) {
	rows, err := Parse(strings.NewReader(sample), ',', sources.DefaultColumns())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Category != "FV" || rows[0].Values["2022"] != "1.234,56" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Account != "Miete" || rows[1].Values["2024"] != "30" {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
}

func TestParse_Semicolon(t *testing.T) {
	in := "EV/FV;TEXT_KONTO;TEXT_VASTELLE;Erfolg 2022;BVA 2023;BVA 2024\nFV;A;X;1,5;2;3\n"
	rows, err := Parse(strings.NewReader(in), ';', sources.DefaultColumns())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Values["2022"] != "1,5" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse(strings.NewReader(""), ',', sources.DefaultColumns()); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := Parse(strings.NewReader("a,b,c\n1,2,3\n"), ',', sources.DefaultColumns()); err == nil {
		t.Error("expected error for unexpected header")
	}
}

func TestReader_ReadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.csv")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := New(path, "", sources.DefaultColumns())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rows, err := r.ReadRows(context.Background())
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	missing, _ := New(filepath.Join(t.TempDir(), "nope.csv"), ",", sources.DefaultColumns())
	if _, err := missing.ReadRows(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", ",", sources.DefaultColumns()); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := New("x.csv", ";;", sources.DefaultColumns()); err == nil {
		t.Error("expected error for multi-character delimiter")
	}
}

package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"budgetdash/internal/core"
	"budgetdash/internal/sources"
)

func TestMemoryStoreReadAndSet(t *testing.T) {
	s := New([]core.RawRow{{Category: "FV", Account: "A", CostCenter: "X", Values: map[core.Year]string{"2022": "1"}}})

	rows, err := s.ReadRows(context.Background())
	if err != nil || len(rows) != 1 {
		t.Fatalf("unexpected read: rows=%v err=%v", rows, err)
	}
	rows[0].Values["2022"] = "changed"

	again, _ := s.ReadRows(context.Background())
	if again[0].Values["2022"] != "1" {
		t.Fatalf("store leaked internal state: %v", again[0].Values)
	}

	s.Set(nil)
	rows, _ = s.ReadRows(context.Background())
	if len(rows) != 0 {
		t.Fatalf("expected empty store after Set(nil), got %d rows", len(rows))
	}
}

func TestNewFromFilesSeedsAndFallback(t *testing.T) {
	dir := t.TempDir()
	// No file -> sample rows
	s := NewFromFiles(dir, sources.DefaultColumns())
	rows, _ := s.ReadRows(context.Background())
	if len(rows) != len(SampleRows()) {
		t.Fatalf("expected sample rows when file missing, got %d", len(rows))
	}

	seed := "EV/FV,TEXT_KONTO,TEXT_VASTELLE,Erfolg 2022,BVA 2023,BVA 2024\nFV,A,X,1,2,3\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_budget.csv"), []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir, sources.DefaultColumns())
	rows, _ = s.ReadRows(context.Background())
	if len(rows) != 1 || rows[0].Account != "A" || rows[0].Values["2024"] != "3" {
		t.Fatalf("unexpected seeded rows: %+v", rows)
	}

	if err := os.WriteFile(filepath.Join(dir, "seed_budget.csv"), []byte("bogus\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir, sources.DefaultColumns())
	rows, _ = s.ReadRows(context.Background())
	if len(rows) != len(SampleRows()) {
		t.Fatalf("expected fallback for bad seed file, got %d rows", len(rows))
	}
}

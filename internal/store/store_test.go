package store

import (
	"errors"
	"slices"
	"testing"

	"budgetdash/internal/core"
)

func raw(cat, account, center string, vals ...string) core.RawRow {
	years := []core.Year{"2022", "2023", "2024"}
	r := core.RawRow{Category: cat, Account: account, CostCenter: center, Values: map[core.Year]string{}}
	for i, v := range vals {
		r.Values[years[i]] = v
	}
	return r
}

func TestLoad_FiltersParsesAndSorts(t *testing.T) {
	rows := []core.RawRow{
		raw("FV", "B", "X", "1.234,56", "2.000", "0,99"),
		raw("EV", "A", "X", "1", "1", "1"),
		raw("FV", "A", "Y", "-10,5", "20", "30"),
		raw("FV", "A", "X", "100", "200", "300"),
	}

	records, report, err := Load(rows, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if report != (LoadReport{Read: 4, Kept: 3, Filtered: 1}) {
		t.Errorf("report = %+v", report)
	}

	var order []string
	for _, r := range records {
		order = append(order, r.Account+"/"+r.CostCenter)
	}
	if !slices.Equal(order, []string{"A/X", "A/Y", "B/X"}) {
		t.Errorf("order = %v", order)
	}
	if records[2].AmountByYear["2022"] != 1234 || records[2].AmountByYear["2024"] != 0 {
		t.Errorf("unexpected amounts: %v", records[2].AmountByYear)
	}
	if records[1].AmountByYear["2022"] != -10 {
		t.Errorf("negative amount = %d, want -10", records[1].AmountByYear["2022"])
	}
}

func TestLoad_ParseErrorPolicies(t *testing.T) {
	rows := []core.RawRow{
		raw("FV", "A", "X", "1", "2", "3"),
		raw("FV", "B", "X", "1", "n/a", "3"),
		raw("FV", "C", "X", "1", "2"),
	}

	_, _, err := Load(rows, LoadOptions{Policy: core.RejectDataset})
	var perr *core.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Row != 1 || perr.Year != "2023" || perr.Value != "n/a" {
		t.Errorf("unexpected parse error detail: %+v", perr)
	}
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Error("ParseError should match ErrInvalidAmount")
	}

	var skipped []int
	records, report, err := Load(rows, LoadOptions{
		Policy: core.SkipRow,
		OnSkip: func(e *core.ParseError) { skipped = append(skipped, e.Row) },
	})
	if err != nil {
		t.Fatalf("Load(skip) error = %v", err)
	}
	if len(records) != 1 || report.Skipped != 2 {
		t.Fatalf("records=%d report=%+v", len(records), report)
	}
	if !slices.Equal(skipped, []int{1, 2}) {
		t.Errorf("skipped rows = %v", skipped)
	}
}

func TestLoad_ExplicitYearsAndSentinel(t *testing.T) {
	rows := []core.RawRow{raw("IST", "A", "X", "1", "2", "3")}
	records, _, err := Load(rows, LoadOptions{Sentinel: "IST", Years: []core.Year{"2023"}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 || len(records[0].AmountByYear) != 1 || records[0].AmountByYear["2023"] != 2 {
		t.Fatalf("unexpected records: %+v", records)
	}

	if _, _, err := Load(rows, LoadOptions{Policy: "maybe"}); err == nil {
		t.Fatal("expected error for invalid policy")
	}
}

func TestStore_ReplaceIsCopyOnWrite(t *testing.T) {
	s := New()
	if s.Loaded() {
		t.Fatal("new store should be empty")
	}

	first := []core.BudgetRecord{{Account: "A", CostCenter: "X", AmountByYear: map[core.Year]int64{"2022": 1}}}
	if _, err := s.Replace(first, "test"); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	held := s.Snapshot()

	second := []core.BudgetRecord{
		{Account: "B", CostCenter: "Y", AmountByYear: map[core.Year]int64{"2023": 5}},
		{Account: "C", CostCenter: "Y", AmountByYear: map[core.Year]int64{"2023": 7}},
	}
	if _, err := s.Replace(second, "test"); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	if len(held.Records) != 1 || held.Records[0].Account != "A" {
		t.Errorf("held snapshot changed: %+v", held.Records)
	}
	if !slices.Equal(s.YearsAvailable(), []core.Year{"2023"}) {
		t.Errorf("years = %v", s.YearsAvailable())
	}
	got := s.Query(core.AggregationQuery{GroupBy: core.DimensionCostCenter, Years: []core.Year{"2023"}})
	if len(got) != 1 || got[0] != (core.KeyTotal{Key: "Y", Total: 12}) {
		t.Errorf("Query() = %v", got)
	}
}

func TestDataset_Has(t *testing.T) {
	s := New()
	ds, err := s.Replace([]core.BudgetRecord{
		{Account: "A", CostCenter: "X", AmountByYear: map[core.Year]int64{"2022": 1}},
	}, "test")
	if err != nil {
		t.Fatal(err)
	}
	if !ds.Has(core.DimensionAccount, "A") || !ds.Has(core.DimensionCostCenter, "X") {
		t.Error("Has() missed a present key")
	}
	if ds.Has(core.DimensionAccount, "X") || ds.Has(core.DimensionCostCenter, "B") {
		t.Error("Has() matched across dimensions or a missing key")
	}
}

func TestStore_ReplaceRejectsMixedYears(t *testing.T) {
	s := New()
	mixed := []core.BudgetRecord{
		{Account: "A", AmountByYear: map[core.Year]int64{"2022": 1}},
		{Account: "B", AmountByYear: map[core.Year]int64{"2023": 1}},
	}
	if _, err := s.Replace(mixed, "test"); !errors.Is(err, ErrYearMismatch) {
		t.Fatalf("expected ErrYearMismatch, got %v", err)
	}
	if s.Loaded() {
		t.Fatal("failed replace must keep the previous dataset")
	}
}

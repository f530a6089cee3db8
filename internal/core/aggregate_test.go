package core

import (
	"fmt"
	"maps"
	"slices"
	"testing"
)

func sampleRecords() []BudgetRecord {
	return []BudgetRecord{
		{Account: "A", CostCenter: "X", AmountByYear: map[Year]int64{"2022": 100, "2023": 200}},
		{Account: "B", CostCenter: "X", AmountByYear: map[Year]int64{"2022": 50, "2023": 50}},
		{Account: "A", CostCenter: "Y", AmountByYear: map[Year]int64{"2022": 10, "2023": 10}},
	}
}

func TestAggregate_GroupByAccount(t *testing.T) {
	got := Aggregate(sampleRecords(), DimensionAccount, []Year{"2022", "2023"}, nil)
	want := map[string]int64{"A": 320, "B": 100}
	if !maps.Equal(got, want) {
		t.Fatalf("Aggregate() = %v, want %v", got, want)
	}

	top := RankN(got, RankTop, 1)
	if len(top) != 1 || top[0] != (KeyTotal{Key: "A", Total: 320}) {
		t.Fatalf("RankN(1) = %v, want [{A 320}]", top)
	}
}

func TestAggregate_Filter(t *testing.T) {
	tests := []struct {
		name    string
		groupBy Dimension
		filter  *Filter
		want    map[string]int64
	}{
		{
			name:    "accounts within cost center Y",
			groupBy: DimensionAccount,
			filter:  &Filter{Dimension: DimensionCostCenter, Value: "Y"},
			want:    map[string]int64{"A": 20},
		},
		{
			name:    "cost centers of account A",
			groupBy: DimensionCostCenter,
			filter:  &Filter{Dimension: DimensionAccount, Value: "A"},
			want:    map[string]int64{"X": 300, "Y": 20},
		},
		{
			name:    "filter matching nothing",
			groupBy: DimensionAccount,
			filter:  &Filter{Dimension: DimensionAccount, Value: "Z"},
			want:    map[string]int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(sampleRecords(), tt.groupBy, []Year{"2022", "2023"}, tt.filter)
			if !maps.Equal(got, tt.want) {
				t.Errorf("Aggregate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregate_Linearity(t *testing.T) {
	records := []BudgetRecord{
		{Account: "A", CostCenter: "X", AmountByYear: map[Year]int64{"2022": 7, "2023": -3, "2024": 11}},
		{Account: "B", CostCenter: "Y", AmountByYear: map[Year]int64{"2022": 0, "2023": 40, "2024": -9}},
		{Account: "A", CostCenter: "Y", AmountByYear: map[Year]int64{"2022": 5, "2023": 5, "2024": 5}},
		{Account: "C", CostCenter: "X", AmountByYear: map[Year]int64{"2022": 1000, "2023": 1, "2024": 2}},
	}
	all := []Year{"2022", "2023", "2024"}

	// every non-empty subset of the three years
	for mask := 1; mask < 1<<len(all); mask++ {
		var subset []Year
		for i, y := range all {
			if mask&(1<<i) != 0 {
				subset = append(subset, y)
			}
		}
		for _, dim := range []Dimension{DimensionAccount, DimensionCostCenter} {
			combined := Aggregate(records, dim, subset, nil)
			summed := map[string]int64{}
			for _, y := range subset {
				for k, v := range Aggregate(records, dim, []Year{y}, nil) {
					summed[k] += v
				}
			}
			if !maps.Equal(combined, summed) {
				t.Fatalf("years=%v dim=%s: combined %v != per-year sum %v", subset, dim, combined, summed)
			}
		}
	}
}

func TestYearTotals(t *testing.T) {
	got := YearTotals(sampleRecords(), []Year{"2022", "2023"}, nil)
	want := []KeyTotal{{Key: "2022", Total: 160}, {Key: "2023", Total: 260}}
	if !slices.Equal(got, want) {
		t.Fatalf("YearTotals() = %v, want %v", got, want)
	}

	got = YearTotals(sampleRecords(), []Year{"2023"}, &Filter{Dimension: DimensionAccount, Value: "A"})
	want = []KeyTotal{{Key: "2023", Total: 210}}
	if !slices.Equal(got, want) {
		t.Fatalf("YearTotals(filtered) = %v, want %v", got, want)
	}
}

func TestRankN_OrderingAndTies(t *testing.T) {
	totals := map[string]int64{"d": 5, "b": 10, "a": 10, "c": -1}

	top := RankN(totals, RankTop, 10)
	wantTop := []KeyTotal{{"a", 10}, {"b", 10}, {"d", 5}, {"c", -1}}
	if !slices.Equal(top, wantTop) {
		t.Errorf("RankN(Top) = %v, want %v", top, wantTop)
	}

	bottom := RankN(totals, RankBottom, 2)
	wantBottom := []KeyTotal{{"c", -1}, {"d", 5}}
	if !slices.Equal(bottom, wantBottom) {
		t.Errorf("RankN(Bottom) = %v, want %v", bottom, wantBottom)
	}
}

func TestRankN_FewerKeysThanCount(t *testing.T) {
	got := RankN(map[string]int64{"A": 1, "B": 2}, RankTop, 10)
	if len(got) != 2 {
		t.Fatalf("expected exactly 2 entries, got %d: %v", len(got), got)
	}
}

func TestRankN_TopAndBottomPartition(t *testing.T) {
	t.Run("more than 20 distinct totals are disjoint", func(t *testing.T) {
		totals := map[string]int64{}
		for i := 0; i < 25; i++ {
			totals[fmt.Sprintf("k%02d", i)] = int64(i * 13)
		}
		top := keySet(RankN(totals, RankTop, 10))
		bottom := keySet(RankN(totals, RankBottom, 10))
		for k := range top {
			if bottom[k] {
				t.Fatalf("key %s present in both top and bottom", k)
			}
		}
	})

	t.Run("up to 20 keys are covered by the union", func(t *testing.T) {
		totals := map[string]int64{}
		for i := 0; i < 17; i++ {
			totals[fmt.Sprintf("k%02d", i)] = int64(i % 4)
		}
		union := keySet(RankN(totals, RankTop, 10))
		for k := range keySet(RankN(totals, RankBottom, 10)) {
			union[k] = true
		}
		if len(union) != len(totals) {
			t.Fatalf("union covers %d keys, want %d", len(union), len(totals))
		}
	})
}

func TestRun(t *testing.T) {
	records := sampleRecords()
	years := []Year{"2022", "2023"}

	trend := Run(records, AggregationQuery{Years: years})
	if len(trend) != 2 || trend[0].Key != "2022" {
		t.Fatalf("trend query = %v", trend)
	}

	unranked := Run(records, AggregationQuery{GroupBy: DimensionCostCenter, Years: years})
	want := []KeyTotal{{"X", 400}, {"Y", 20}}
	if !slices.Equal(unranked, want) {
		t.Fatalf("unranked query = %v, want %v", unranked, want)
	}
}

func TestRun_EmptyYearsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty year set")
		}
	}()
	Run(sampleRecords(), AggregationQuery{GroupBy: DimensionAccount})
}

func keySet(in []KeyTotal) map[string]bool {
	out := make(map[string]bool, len(in))
	for _, kt := range in {
		out[kt.Key] = true
	}
	return out
}

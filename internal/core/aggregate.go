package core

import (
	"cmp"
	"fmt"
	"slices"
)

// Aggregate groups records by groupBy and sums the amounts of every year in
// years. Records not matching filter are ignored. The returned total per key
// is the cross-year sum.
func Aggregate(records []BudgetRecord, groupBy Dimension, years []Year, filter *Filter) map[string]int64 {
	if err := groupBy.Validate(); err != nil {
		panic("core: " + err.Error())
	}
	totals := make(map[string]int64)
	for _, r := range records {
		if !matches(r, filter) {
			continue
		}
		key := r.Field(groupBy)
		totals[key] += sumYears(r, years)
	}
	return totals
}

// YearTotals sums the filtered records separately for each year, in the
// order of years. This is the per-year breakdown behind the trend view.
func YearTotals(records []BudgetRecord, years []Year, filter *Filter) []KeyTotal {
	out := make([]KeyTotal, len(years))
	for i, y := range years {
		out[i].Key = string(y)
	}
	for _, r := range records {
		if !matches(r, filter) {
			continue
		}
		for i, y := range years {
			out[i].Total += amount(r, y)
		}
	}
	return out
}

// RankN orders totals descending (RankTop) or ascending (RankBottom) by
// total, breaking ties by key ascending, and keeps at most count entries.
func RankN(totals map[string]int64, direction RankMode, count int) []KeyTotal {
	if err := direction.Validate(); err != nil {
		panic("core: " + err.Error())
	}
	out := make([]KeyTotal, 0, len(totals))
	for k, v := range totals {
		out = append(out, KeyTotal{Key: k, Total: v})
	}
	slices.SortFunc(out, func(a, b KeyTotal) int {
		c := cmp.Compare(a.Total, b.Total)
		if direction == RankTop {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if count >= 0 && len(out) > count {
		out = out[:count]
	}
	return out
}

// Run executes a query against records and returns ordered buckets.
// Grouped queries without a Rank return every key ordered as RankTop would.
func Run(records []BudgetRecord, q AggregationQuery) []KeyTotal {
	if len(q.Years) == 0 {
		panic("core: aggregation requested with an empty year set")
	}
	if q.GroupBy == "" {
		return YearTotals(records, q.Years, q.Filter)
	}
	totals := Aggregate(records, q.GroupBy, q.Years, q.Filter)
	if q.Rank == nil {
		return RankN(totals, RankTop, -1)
	}
	return RankN(totals, q.Rank.Direction, q.Rank.Count)
}

func matches(r BudgetRecord, f *Filter) bool {
	if f == nil {
		return true
	}
	return r.Field(f.Dimension) == f.Value
}

func sumYears(r BudgetRecord, years []Year) int64 {
	var total int64
	for _, y := range years {
		total += amount(r, y)
	}
	return total
}

// amount returns the record's amount for y. Every record of a dataset
// carries the same years, so a miss means the caller asked for a year the
// dataset does not have.
func amount(r BudgetRecord, y Year) int64 {
	v, ok := r.AmountByYear[y]
	if !ok {
		panic(fmt.Sprintf("core: record %s/%s has no amount for year %s", r.Account, r.CostCenter, y))
	}
	return v
}

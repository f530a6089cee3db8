package core

const (
	ViewTrend       View = "trend"
	ViewAccounts    View = "accounts"
	ViewCostCenters View = "cost_centers"
)

// View identifies one of the three linked dashboard views.
type View string

// Filter is a single equality predicate on one dimension.
type Filter struct {
	Dimension Dimension
	Value     string
}

// Rank limits a grouped result to the first Count entries in Direction order.
type Rank struct {
	Direction RankMode
	Count     int
}

// AggregationQuery describes the data one view needs. An empty GroupBy asks
// for per-year totals (the trend view); otherwise totals are summed across
// Years and keyed by the GroupBy field.
type AggregationQuery struct {
	GroupBy Dimension
	Years   []Year
	Filter  *Filter
	Rank    *Rank
}

// KeyTotal is one aggregated bucket.
type KeyTotal struct {
	Key   string
	Total int64
}

// ResultEntry is a labeled bucket ready for rendering.
type ResultEntry struct {
	Key      string `json:"key"`
	Total    int64  `json:"total"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// AggregationResult is the ordered, labeled output of one view.
type AggregationResult struct {
	View    View          `json:"view"`
	Title   string        `json:"title"`
	Entries []ResultEntry `json:"entries"`
}

// ViewQueries holds the three per-view queries derived from one state.
type ViewQueries struct {
	Trend       AggregationQuery
	Accounts    AggregationQuery
	CostCenters AggregationQuery
}

// Keys returns the entry keys in result order.
func (r AggregationResult) Keys() []string {
	keys := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		keys[i] = e.Key
	}
	return keys
}

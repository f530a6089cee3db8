package core

import (
	"fmt"
	"slices"
)

const (
	EventYearsChanged      EventType = "years_changed"
	EventRankModeChanged   EventType = "rank_mode_changed"
	EventAccountClicked    EventType = "account_clicked"
	EventCostCenterClicked EventType = "cost_center_clicked"
	EventReset             EventType = "reset"

	// DefaultRankCount is how many entries the account and cost-center views show.
	DefaultRankCount = 10
)

type (
	EventType string

	// Event is one user interaction. Only the field matching Type is read.
	Event struct {
		Type  EventType
		Years []Year
		Mode  RankMode
		Key   string
	}

	// Drilldown is the single active click selection. The zero value means
	// no drilldown; otherwise Dimension says which chart was clicked.
	Drilldown struct {
		Dimension Dimension `json:"dimension,omitempty"`
		Value     string    `json:"value,omitempty"`
	}

	// SelectionState is replaced, never mutated, on every accepted event.
	SelectionState struct {
		SelectedYears []Year    `json:"selected_years"`
		RankMode      RankMode  `json:"rank_mode"`
		Drilldown     Drilldown `json:"drilldown"`
	}

	// Displayed holds the keys currently rendered in the two clickable views.
	Displayed struct {
		Accounts    []string
		CostCenters []string
	}
)

func YearsChanged(years ...Year) Event { return Event{Type: EventYearsChanged, Years: years} }
func RankModeChanged(mode RankMode) Event { return Event{Type: EventRankModeChanged, Mode: mode} }
func AccountClicked(account string) Event { return Event{Type: EventAccountClicked, Key: account} }
func CostCenterClicked(center string) Event { return Event{Type: EventCostCenterClicked, Key: center} }
func Reset() Event { return Event{Type: EventReset} }
func ByAccount(account string) Drilldown { return Drilldown{Dimension: DimensionAccount, Value: account} }
func ByCostCenter(center string) Drilldown { return Drilldown{Dimension: DimensionCostCenter, Value: center} }
func (d Drilldown) IsNone() bool { return d.Dimension == "" }

// Account returns the drilled account, if the drilldown is ByAccount.
func (d Drilldown) Account() (string, bool) {
	return d.Value, d.Dimension == DimensionAccount
}

// CostCenter returns the drilled cost center, if the drilldown is ByCostCenter.
func (d Drilldown) CostCenter() (string, bool) {
	return d.Value, d.Dimension == DimensionCostCenter
}

func (d Drilldown) filter() *Filter {
	if d.IsNone() {
		return nil
	}
	return &Filter{Dimension: d.Dimension, Value: d.Value}
}

// Equal reports whether two states select the same thing.
func (s SelectionState) Equal(o SelectionState) bool {
	return s.RankMode == o.RankMode && s.Drilldown == o.Drilldown && slices.Equal(s.SelectedYears, o.SelectedYears)
}

// Machine resolves interaction events against a fixed set of available years.
type Machine struct {
	available []Year
	rankCount int
}

// NewMachine returns a machine for the given years. rankCount <= 0 selects
// DefaultRankCount.
func NewMachine(available []Year, rankCount int) *Machine {
	if rankCount <= 0 {
		rankCount = DefaultRankCount
	}
	return &Machine{available: NormalizeYears(available), rankCount: rankCount}
}

// YearsAvailable returns a copy of the machine's year set.
func (m *Machine) YearsAvailable() []Year {
	return slices.Clone(m.available)
}

// Initial returns the state a new session starts from.
func (m *Machine) Initial() SelectionState {
	return SelectionState{
		SelectedYears: slices.Clone(m.available),
		RankMode:      RankTop,
	}
}

// Reduce applies e to s. On error the returned state is s unchanged.
func (m *Machine) Reduce(s SelectionState, e Event) (SelectionState, error) {
	next := SelectionState{
		SelectedYears: slices.Clone(s.SelectedYears),
		RankMode:      s.RankMode,
		Drilldown:     s.Drilldown,
	}

	switch e.Type {
	case EventYearsChanged:
		years, err := m.validateYears(e.Years)
		if err != nil {
			return s, err
		}
		next.SelectedYears = years
	case EventRankModeChanged:
		if err := e.Mode.Validate(); err != nil {
			return s, err
		}
		next.RankMode = e.Mode
	case EventReset:
		next.RankMode = RankTop
		next.Drilldown = Drilldown{}
	case EventAccountClicked:
		if e.Key == "" {
			return s, fmt.Errorf("%w: account click without key", ErrInvalidEvent)
		}
		next.Drilldown = ByAccount(e.Key)
	case EventCostCenterClicked:
		// Replaces an account drilldown as well: only one dimension is ever active.
		if e.Key == "" {
			return s, fmt.Errorf("%w: cost center click without key", ErrInvalidEvent)
		}
		next.Drilldown = ByCostCenter(e.Key)
	default:
		return s, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, string(e.Type))
	}
	return next, nil
}

// Reconcile adapts a state produced against an older year set to this
// machine's years. Vanished years are dropped; if none remain the full set
// is selected again.
func (m *Machine) Reconcile(s SelectionState) SelectionState {
	kept := make([]Year, 0, len(s.SelectedYears))
	for _, y := range s.SelectedYears {
		if slices.Contains(m.available, y) {
			kept = append(kept, y)
		}
	}
	if len(kept) == 0 {
		kept = slices.Clone(m.available)
	}
	s.SelectedYears = kept
	if s.RankMode == "" {
		s.RankMode = RankTop
	}
	return s
}

func (m *Machine) validateYears(in []Year) ([]Year, error) {
	years := NormalizeYears(in)
	if len(years) == 0 {
		return nil, &EmptySelectionError{}
	}
	var unknown []Year
	for _, y := range years {
		if !slices.Contains(m.available, y) {
			unknown = append(unknown, y)
		}
	}
	if len(unknown) > 0 {
		return nil, &EmptySelectionError{Unknown: unknown}
	}
	return years, nil
}

// Queries derives the three view queries for s.
//
// The trend view follows whichever drilldown is active. The account view is
// only narrowed by a cost-center drilldown and the cost-center view only by
// an account drilldown; a chart is never filtered by its own selection.
func (m *Machine) Queries(s SelectionState) ViewQueries {
	years := slices.Clone(s.SelectedYears)
	q := ViewQueries{
		Trend: AggregationQuery{
			Years:  years,
			Filter: s.Drilldown.filter(),
		},
		Accounts: AggregationQuery{
			GroupBy: DimensionAccount,
			Years:   years,
			Rank:    &Rank{Direction: s.RankMode, Count: m.rankCount},
		},
		CostCenters: AggregationQuery{
			GroupBy: DimensionCostCenter,
			Years:   years,
			Rank:    &Rank{Direction: RankTop, Count: m.rankCount},
		},
	}
	if c, ok := s.Drilldown.CostCenter(); ok {
		q.Accounts.Filter = &Filter{Dimension: DimensionCostCenter, Value: c}
	}
	if a, ok := s.Drilldown.Account(); ok {
		q.CostCenters.Filter = &Filter{Dimension: DimensionAccount, Value: a}
	}
	return q
}

// Highlight marks the account entry matching an active account drilldown.
func Highlight(entries []ResultEntry, s SelectionState) {
	account, ok := s.Drilldown.Account()
	for i := range entries {
		entries[i].Selected = ok && entries[i].Key == account
	}
}

// Check reports an UnknownKeyError when e clicks a key that is not on
// screen. Non-click events always pass.
func (d Displayed) Check(e Event) error {
	switch e.Type {
	case EventAccountClicked:
		if !slices.Contains(d.Accounts, e.Key) {
			return &UnknownKeyError{Dimension: DimensionAccount, Key: e.Key}
		}
	case EventCostCenterClicked:
		if !slices.Contains(d.CostCenters, e.Key) {
			return &UnknownKeyError{Dimension: DimensionCostCenter, Key: e.Key}
		}
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budgetdash/internal/cache"
	"budgetdash/internal/core"
	"budgetdash/internal/currency"
	"budgetdash/internal/log"
	"budgetdash/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoData          = errors.New("no dataset loaded")
)

// Dashboard is everything the rendering layer needs after one event.
type Dashboard struct {
	SessionID      string                 `json:"session_id"`
	State          core.SelectionState    `json:"state"`
	YearsAvailable []core.Year            `json:"years_available"`
	Trend          core.AggregationResult `json:"trend"`
	Accounts       core.AggregationResult `json:"accounts"`
	CostCenters    core.AggregationResult `json:"cost_centers"`
	// Ignored is set when the event was a click on a key that is not shown.
	Ignored bool `json:"ignored,omitempty"`
}

type session struct {
	mu        sync.Mutex
	state     core.SelectionState
	dataset   *store.Dataset
	displayed core.Displayed
}

// DashboardOptions configures the service. Zero values select defaults.
type DashboardOptions struct {
	RankCount   int
	SessionTTL  time.Duration
	MaxSessions int
	Labeler     currency.Labeler
}

// DashboardService runs the selection state machine for each session and
// renders the three linked views from the current dataset.
type DashboardService struct {
	store     *store.Store
	sessions  *cache.LRUCache[*session]
	labeler   currency.Labeler
	rankCount int
	logger    *log.Logger
	sl        *log.StructuredLogger
}

func NewDashboardService(st *store.Store, opts DashboardOptions, logger *log.Logger) *DashboardService {
	if opts.RankCount <= 0 {
		opts.RankCount = core.DefaultRankCount
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1000
	}
	if opts.Labeler == nil {
		opts.Labeler = currency.Default()
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentDashboard)
	return &DashboardService{
		store:     st,
		sessions:  cache.NewSlidingLRUCache[*session](opts.MaxSessions, opts.SessionTTL),
		labeler:   opts.Labeler,
		rankCount: opts.RankCount,
		logger:    logger,
		sl:        log.NewStructuredLogger(logger),
	}
}

// Sessions exposes the session cache so it can be registered for cleanup.
func (s *DashboardService) Sessions() cache.Cleaner { return s.sessions }

// YearsAvailable returns the years of the current dataset.
func (s *DashboardService) YearsAvailable() []core.Year { return s.store.YearsAvailable() }

// CreateSession starts a session in the initial state and renders it.
func (s *DashboardService) CreateSession(ctx context.Context) (Dashboard, error) {
	ds := s.store.Snapshot()
	if len(ds.Years) == 0 {
		return Dashboard{}, ErrNoData
	}
	m := core.NewMachine(ds.Years, s.rankCount)
	sess := &session{state: m.Initial(), dataset: ds}

	id := uuid.NewString()
	view, err := s.render(ctx, id, ds, m, sess.state)
	if err != nil {
		return Dashboard{}, err
	}
	sess.displayed = displayedOf(view)
	s.sessions.Set(id, sess)

	s.logger.InfoContext(ctx, "Session created", log.FieldSessionID, id)
	return view, nil
}

// Get renders the session's current state.
func (s *DashboardService) Get(ctx context.Context, id string) (Dashboard, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return Dashboard{}, ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	ds, m, err := s.sync(ctx, id, sess)
	if err != nil {
		return Dashboard{}, err
	}
	return s.render(ctx, id, ds, m, sess.state)
}

// Apply runs one interaction event against the session.
//
// A click on a key that is not currently displayed leaves the state as is;
// the returned dashboard has Ignored set and the error is an UnknownKeyError.
// Any other rejected event returns the error and the unchanged dashboard.
func (s *DashboardService) Apply(ctx context.Context, id string, ev core.Event) (Dashboard, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return Dashboard{}, ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	ds, m, err := s.sync(ctx, id, sess)
	if err != nil {
		return Dashboard{}, err
	}

	if err := sess.displayed.Check(ev); err != nil {
		view, rerr := s.render(ctx, id, ds, m, sess.state)
		if rerr != nil {
			return Dashboard{}, rerr
		}
		view.Ignored = true
		s.logger.DebugContext(ctx, "Ignoring click on hidden key",
			log.FieldSessionID, id,
			log.FieldEventType, string(ev.Type),
			log.FieldError, err)
		return view, err
	}

	next, err := m.Reduce(sess.state, ev)
	if err != nil {
		view, rerr := s.render(ctx, id, ds, m, sess.state)
		if rerr != nil {
			return Dashboard{}, rerr
		}
		return view, err
	}

	view, err := s.render(ctx, id, ds, m, next)
	if err != nil {
		return Dashboard{}, err
	}
	sess.state = next
	sess.displayed = displayedOf(view)

	s.sl.LogSelectionApplied(ctx, id, string(ev.Type), core.JoinYears(next.SelectedYears),
		string(next.RankMode), describeDrilldown(next.Drilldown))
	return view, nil
}

// sync brings a session up to date with the current dataset. Must be called
// with sess.mu held.
func (s *DashboardService) sync(ctx context.Context, id string, sess *session) (*store.Dataset, *core.Machine, error) {
	ds := s.store.Snapshot()
	if len(ds.Years) == 0 {
		return nil, nil, ErrNoData
	}
	m := core.NewMachine(ds.Years, s.rankCount)
	if sess.dataset == ds {
		return ds, m, nil
	}

	sess.state = m.Reconcile(sess.state)
	if d := sess.state.Drilldown; !d.IsNone() && !ds.Has(d.Dimension, d.Value) {
		sess.state.Drilldown = core.Drilldown{}
	}
	view, err := s.render(ctx, id, ds, m, sess.state)
	if err != nil {
		return nil, nil, err
	}
	sess.dataset = ds
	sess.displayed = displayedOf(view)
	s.logger.DebugContext(ctx, "Session moved to new dataset",
		log.FieldSessionID, id,
		log.FieldYears, core.JoinYears(sess.state.SelectedYears))
	return ds, m, nil
}

// render aggregates the three views concurrently over one snapshot.
func (s *DashboardService) render(ctx context.Context, id string, ds *store.Dataset, m *core.Machine, state core.SelectionState) (Dashboard, error) {
	q := m.Queries(state)
	view := Dashboard{
		SessionID:      id,
		State:          state,
		YearsAvailable: m.YearsAvailable(),
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverInto(&err, core.ViewTrend)
		view.Trend = s.result(core.ViewTrend, trendTitle(state), ds.Query(q.Trend))
		return nil
	})
	g.Go(func() (err error) {
		defer recoverInto(&err, core.ViewAccounts)
		view.Accounts = s.result(core.ViewAccounts, accountsTitle(state, s.rankCount), ds.Query(q.Accounts))
		core.Highlight(view.Accounts.Entries, state)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverInto(&err, core.ViewCostCenters)
		view.CostCenters = s.result(core.ViewCostCenters, costCentersTitle(state), ds.Query(q.CostCenters))
		return nil
	})
	if err := g.Wait(); err != nil {
		s.sl.LogError(ctx, "Rendering failed", err, log.ComponentDashboard, log.OpRender,
			log.LogFields{log.FieldSessionID: id})
		return Dashboard{}, err
	}
	return view, nil
}

func (s *DashboardService) result(v core.View, title string, totals []core.KeyTotal) core.AggregationResult {
	entries := make([]core.ResultEntry, len(totals))
	for i, kt := range totals {
		entries[i] = core.ResultEntry{Key: kt.Key, Total: kt.Total, Label: s.labeler.Format(kt.Total)}
	}
	return core.AggregationResult{View: v, Title: title, Entries: entries}
}

func recoverInto(err *error, v core.View) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("render %s view: %v", v, r)
	}
}

func displayedOf(d Dashboard) core.Displayed {
	return core.Displayed{Accounts: d.Accounts.Keys(), CostCenters: d.CostCenters.Keys()}
}

func describeDrilldown(d core.Drilldown) string {
	if d.IsNone() {
		return "none"
	}
	return string(d.Dimension) + "=" + d.Value
}

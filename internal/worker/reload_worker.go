package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budgetdash/internal/amqp"
	"budgetdash/internal/core"
	"budgetdash/internal/log"
	"budgetdash/internal/sources"
	"budgetdash/internal/store"
)

// Source is where a reload reads from. Exactly one of Rows or Records is set:
// Rows for raw feeds that still need normalizing, Records for storage that
// holds already loaded datasets.
type Source struct {
	Name    string
	Rows    sources.RowReader
	Records sources.RecordReader
}

// ReloadWorker refreshes the record store from its configured source.
type ReloadWorker struct {
	store  *store.Store
	source Source
	opts   store.LoadOptions
	logger *log.Logger
	sl     *log.StructuredLogger

	mu sync.Mutex // one reload at a time
}

func NewReloadWorker(st *store.Store, src Source, opts store.LoadOptions, logger *log.Logger) *ReloadWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentWorker)
	return &ReloadWorker{
		store:  st,
		source: src,
		opts:   opts,
		logger: logger,
		sl:     log.NewStructuredLogger(logger),
	}
}

// Reload reads the source and swaps the store's dataset. On any error the
// previous dataset stays in place.
func (w *ReloadWorker) Reload(ctx context.Context) (*store.Dataset, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ds, err := w.reload(ctx)
	if err != nil {
		w.sl.LogError(ctx, "Dataset reload failed", err, log.ComponentWorker, log.OpReload,
			log.LogFields{log.FieldSource: w.source.Name})
		return nil, err
	}
	return ds, nil
}

func (w *ReloadWorker) reload(ctx context.Context) (*store.Dataset, error) {
	var (
		records []core.BudgetRecord
		report  store.LoadReport
		err     error
	)

	switch {
	case w.source.Records != nil:
		records, err = w.source.Records.ReadRecords(ctx)
		if err != nil {
			return nil, fmt.Errorf("read records from %s: %w", w.source.Name, err)
		}
		report = store.LoadReport{Read: len(records), Kept: len(records)}
	case w.source.Rows != nil:
		rows, err := w.source.Rows.ReadRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("read rows from %s: %w", w.source.Name, err)
		}
		opts := w.opts
		opts.OnSkip = func(perr *core.ParseError) {
			w.logger.WarnContext(ctx, "Skipping unparsable row",
				"row", perr.Row,
				"year", string(perr.Year),
				"value", perr.Value)
		}
		records, report, err = store.Load(rows, opts)
		if err != nil {
			return nil, fmt.Errorf("load rows from %s: %w", w.source.Name, err)
		}
	default:
		return nil, errors.New("reload source has no reader")
	}

	ds, err := w.store.Replace(records, w.source.Name)
	if err != nil {
		return nil, fmt.Errorf("replace dataset: %w", err)
	}
	w.sl.LogDatasetLoaded(ctx, w.source.Name, report.Read, report.Kept, report.Skipped)
	return ds, nil
}

// HandleReloadMessage processes a reload notification from AMQP.
func (w *ReloadWorker) HandleReloadMessage(ctx context.Context, msg *amqp.DatasetReloadMessage) error {
	w.logger.InfoContext(ctx, "Processing reload message",
		log.FieldDatasetID, msg.DatasetID,
		log.FieldSource, msg.Source,
		"published_at", msg.Timestamp)

	ds, err := w.Reload(ctx)
	if err != nil {
		return err
	}
	if msg.RowCount > 0 && len(ds.Records) != msg.RowCount {
		w.logger.WarnContext(ctx, "Reloaded row count differs from announcement",
			log.FieldDatasetID, msg.DatasetID,
			"announced", msg.RowCount,
			"loaded", len(ds.Records))
	}
	return nil
}

// StartupLoad performs the initial load, retrying a few times so that a
// source that comes up slightly after the server does not fail startup.
func (w *ReloadWorker) StartupLoad(ctx context.Context, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if _, err = w.Reload(ctx); err == nil {
			return nil
		}
		var perr *core.ParseError
		if errors.As(err, &perr) || errors.Is(err, store.ErrYearMismatch) {
			// Bad data does not fix itself on retry.
			return err
		}
		w.logger.WarnContext(ctx, "Initial load failed",
			log.FieldError, err,
			"attempt", i+1,
			"of", attempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// RunPeriodic reloads every interval until ctx is cancelled. Failures are
// logged and the previous dataset is kept.
func (w *ReloadWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Failures are logged by Reload.
			_, _ = w.Reload(ctx)
		}
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetdash/internal/amqp"
	"budgetdash/internal/core"
	"budgetdash/internal/sources"
	"budgetdash/internal/storage"
	"budgetdash/internal/store"
)

// DatasetSaver persists a normalized dataset.
type DatasetSaver interface {
	SaveDataset(ctx context.Context, source string, records []core.BudgetRecord) (storage.DatasetInfo, error)
}

// ReloadPublisher announces new datasets to running servers.
type ReloadPublisher interface {
	PublishDatasetReload(ctx context.Context, msg *amqp.DatasetReloadMessage) error
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Dataset   storage.DatasetInfo
	Report    store.LoadReport
	Published bool
}

// ImportService normalizes a raw feed, stores it in SQLite and notifies servers via AMQP
type ImportService struct {
	storage   DatasetSaver
	publisher ReloadPublisher
	opts      store.LoadOptions
}

// NewImportService wires the import pipeline. publisher may be nil.
func NewImportService(storage DatasetSaver, publisher ReloadPublisher, opts store.LoadOptions) *ImportService {
	return &ImportService{
		storage:   storage,
		publisher: publisher,
		opts:      opts,
	}
}

// Import reads rows from src, saves the records and publishes a reload
// message. A failed publish does not fail the import: the dataset is
// stored and servers pick it up on their next reload.
func (s *ImportService) Import(ctx context.Context, name string, src sources.RowReader) (ImportResult, error) {
	rows, err := src.ReadRows(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read rows: %w", err)
	}

	opts := s.opts
	opts.OnSkip = func(perr *core.ParseError) {
		slog.WarnContext(ctx, "Skipping unparsable row",
			"row", perr.Row,
			"year", string(perr.Year),
			"value", perr.Value)
	}
	records, report, err := store.Load(rows, opts)
	if err != nil {
		return ImportResult{Report: report}, fmt.Errorf("load rows: %w", err)
	}
	if _, err := store.YearsOf(records); err != nil {
		return ImportResult{Report: report}, err
	}

	info, err := s.storage.SaveDataset(ctx, name, records)
	if err != nil {
		return ImportResult{Report: report}, fmt.Errorf("save dataset: %w", err)
	}
	result := ImportResult{Dataset: info, Report: report}

	if err := s.publishReload(ctx, info); err != nil {
		slog.ErrorContext(ctx, "Failed to publish reload message",
			"dataset_id", info.ID, "error", err)
		return result, nil
	}
	result.Published = s.publisher != nil
	return result, nil
}

func (s *ImportService) publishReload(ctx context.Context, info storage.DatasetInfo) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping reload message")
		return nil
	}
	return s.publisher.PublishDatasetReload(ctx, amqp.NewDatasetReloadMessage(info.ID, info.Source, info.RowCount))
}

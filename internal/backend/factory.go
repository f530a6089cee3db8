package backend

import (
	"context"
	"fmt"
	"log/slog"

	"budgetdash/internal/sources/csvfile"
	gsheet "budgetdash/internal/sources/google"
	"budgetdash/internal/sources/memory"
	"budgetdash/internal/storage"
	"budgetdash/internal/worker"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		return f.createCSVBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createCSVBackend(config Config) (*BackendResult, error) {
	reader, err := csvfile.New(config.CSVPath, config.CSVDelimiter, config.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize CSV reader: %w", err)
	}

	f.logger.Info("Initialized CSV backend", "path", config.CSVPath)

	return &BackendResult{
		Source: worker.Source{Name: reader.Path(), Rows: reader},
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Source:  worker.Source{Name: "sqlite:" + config.SQLiteDBPath, Records: sqliteRepo},
		Cleanup: sqliteRepo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.NewFromEnv(ctx, config.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)

	return &BackendResult{
		Source: worker.Source{Name: "sheets:" + config.GoogleSheetName, Rows: cli},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store := memory.NewFromFiles(dataDir, config.Columns)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Source: worker.Source{Name: "memory", Rows: store},
	}, nil
}

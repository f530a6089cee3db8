// Command budget-import loads a budget export into SQLite and tells running
// servers to reload.
//
// Usage:
//
//	budget-import [-csv path] [-delimiter ;]
//
// Without -csv the configured DATA_BACKEND (csv, sheets or memory) is read.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"budgetdash/internal/backend"
	"budgetdash/internal/cli"
	"budgetdash/internal/config"
	"budgetdash/internal/log"
	"budgetdash/internal/services"
	"budgetdash/internal/sources"
	"budgetdash/internal/sources/csvfile"
)

func main() {
	csvPath := flag.String("csv", "", "CSV export to import (overrides DATA_BACKEND)")
	delimiter := flag.String("delimiter", "", "CSV field delimiter (default CSV_DELIMITER)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall import timeout")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(log.ComponentImport)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	name, rows, cleanup, err := openSource(ctx, logger, cfg, *csvPath, *delimiter)
	if err != nil {
		logger.Error("Failed to open import source", log.FieldError, err)
		os.Exit(1)
	}
	defer cleanup()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.ReloadPublisher
	if client := cli.InitAMQP(logger, cfg); client != nil {
		defer client.Close()
		publisher = client
	}

	res, err := services.NewImportService(repo, publisher, cfg.LoadOptions()).Import(ctx, name, rows)
	if err != nil {
		logger.Error("Import failed", log.FieldError, err, log.FieldSource, name)
		os.Exit(1)
	}

	logger.Info("Import complete",
		log.FieldDatasetID, res.Dataset.ID,
		log.FieldSource, name,
		log.FieldRowsRead, res.Report.Read,
		log.FieldRowsKept, res.Report.Kept,
		log.FieldRowsSkip, res.Report.Skipped,
		"published", res.Published)
}

// openSource picks the row feed: an explicit CSV file, or the configured backend.
func openSource(ctx context.Context, logger *log.Logger, cfg *config.Config, csvPath, delimiter string) (string, sources.RowReader, func(), error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return "", nil, nil, err
	}

	if csvPath != "" {
		if delimiter == "" {
			delimiter = cfg.CSVDelimiter
		}
		r, err := csvfile.New(csvPath, delimiter, backendCfg.Columns)
		if err != nil {
			return "", nil, nil, err
		}
		return csvPath, r, func() {}, nil
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return "", nil, nil, err
	}
	cleanup := func() {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
	}
	if res.Source.Rows == nil {
		cleanup()
		return "", nil, nil, errors.New("backend " + string(backendCfg.Type) + " holds imported data already; use -csv or a raw feed backend")
	}
	return res.Source.Name, res.Source.Rows, cleanup, nil
}

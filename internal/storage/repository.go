package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budgetdash/internal/core"
	"budgetdash/internal/sources"

	_ "modernc.org/sqlite"
)

// ErrNoDataset is returned when nothing has been imported yet.
var ErrNoDataset = errors.New("no dataset imported")

// DatasetInfo describes one stored import.
type DatasetInfo struct {
	ID         int64
	Source     string
	ImportedAt time.Time
	RowCount   int
}

type SQLiteRepository struct {
	db *sql.DB
}

var _ sources.RecordReader = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection; used by the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveDataset stores records as the newest dataset and drops older ones.
func (r *SQLiteRepository) SaveDataset(ctx context.Context, source string, records []core.BudgetRecord) (DatasetInfo, error) {
	info := DatasetInfo{Source: source, ImportedAt: time.Now().UTC(), RowCount: len(records)}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (source, imported_at, row_count) VALUES (?, ?, ?)`,
		source, info.ImportedAt.Format(time.RFC3339Nano), len(records))
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("insert dataset: %w", err)
	}
	if info.ID, err = res.LastInsertId(); err != nil {
		return DatasetInfo{}, fmt.Errorf("dataset id: %w", err)
	}

	insRecord, err := tx.PrepareContext(ctx,
		`INSERT INTO budget_records (dataset_id, position, account, cost_center) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("prepare record insert: %w", err)
	}
	defer insRecord.Close()

	insAmount, err := tx.PrepareContext(ctx,
		`INSERT INTO budget_amounts (record_id, year, amount) VALUES (?, ?, ?)`)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("prepare amount insert: %w", err)
	}
	defer insAmount.Close()

	for i, rec := range records {
		res, err := insRecord.ExecContext(ctx, info.ID, i, rec.Account, rec.CostCenter)
		if err != nil {
			return DatasetInfo{}, fmt.Errorf("insert record %d: %w", i, err)
		}
		recordID, err := res.LastInsertId()
		if err != nil {
			return DatasetInfo{}, fmt.Errorf("record id %d: %w", i, err)
		}
		for _, y := range rec.Years() {
			if _, err := insAmount.ExecContext(ctx, recordID, string(y), rec.AmountByYear[y]); err != nil {
				return DatasetInfo{}, fmt.Errorf("insert amount %d/%s: %w", i, y, err)
			}
		}
	}

	if err := pruneOlder(ctx, tx, info.ID); err != nil {
		return DatasetInfo{}, err
	}
	if err := tx.Commit(); err != nil {
		return DatasetInfo{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Dataset saved to SQLite",
		"dataset_id", info.ID,
		"source", source,
		"rows", info.RowCount)
	return info, nil
}

func pruneOlder(ctx context.Context, tx *sql.Tx, keepID int64) error {
	stmts := []string{
		`DELETE FROM budget_amounts WHERE record_id IN (SELECT id FROM budget_records WHERE dataset_id <> ?)`,
		`DELETE FROM budget_records WHERE dataset_id <> ?`,
		`DELETE FROM datasets WHERE id <> ?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, keepID); err != nil {
			return fmt.Errorf("prune old datasets: %w", err)
		}
	}
	return nil
}

// LatestDataset returns metadata of the newest import or ErrNoDataset.
func (r *SQLiteRepository) LatestDataset(ctx context.Context) (DatasetInfo, error) {
	var info DatasetInfo
	var importedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source, imported_at, row_count FROM datasets ORDER BY id DESC LIMIT 1`).
		Scan(&info.ID, &info.Source, &importedAt, &info.RowCount)
	if errors.Is(err, sql.ErrNoRows) {
		return DatasetInfo{}, ErrNoDataset
	}
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("query latest dataset: %w", err)
	}
	if info.ImportedAt, err = time.Parse(time.RFC3339Nano, importedAt); err != nil {
		return DatasetInfo{}, fmt.Errorf("parse imported_at: %w", err)
	}
	return info, nil
}

// LoadRecords returns the records of a dataset in stored order.
func (r *SQLiteRepository) LoadRecords(ctx context.Context, datasetID int64) ([]core.BudgetRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.account, r.cost_center, a.year, a.amount
		FROM budget_records r
		JOIN budget_amounts a ON a.record_id = r.id
		WHERE r.dataset_id = ?
		ORDER BY r.position, a.year`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetRecord
	lastID := int64(-1)
	for rows.Next() {
		var (
			id              int64
			account, center string
			year            string
			amount          int64
		)
		if err := rows.Scan(&id, &account, &center, &year, &amount); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if id != lastID {
			out = append(out, core.BudgetRecord{
				Account:      account,
				CostCenter:   center,
				AmountByYear: map[core.Year]int64{},
			})
			lastID = id
		}
		out[len(out)-1].AmountByYear[core.Year(year)] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// ReadRecords returns the records of the newest dataset.
func (r *SQLiteRepository) ReadRecords(ctx context.Context) ([]core.BudgetRecord, error) {
	info, err := r.LatestDataset(ctx)
	if err != nil {
		return nil, err
	}
	return r.LoadRecords(ctx, info.ID)
}

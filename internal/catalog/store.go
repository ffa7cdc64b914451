package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cogstream/internal/config"
)

// Store manages the dataset catalog backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Dataset is one catalog row.
type Dataset struct {
	Item       string
	AcquiredAt time.Time
}

// Range bounds a query to [From, To). Zero bounds are open.
type Range struct {
	From time.Time
	To   time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open connects to the catalog configured in cfg.
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.Paths.CatalogPath)
}

// OpenPath initializes or connects to the catalog database at path.
func OpenPath(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("catalog path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Upsert records datasets for product, replacing the acquisition time of
// items already present. It returns the number of rows written.
func (s *Store) Upsert(ctx context.Context, product string, datasets []Dataset) (int, error) {
	if strings.TrimSpace(product) == "" {
		return 0, errors.New("catalog: product is required")
	}
	written := 0
	err := retryOnBusy(ctx, func() error {
		written = 0
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO datasets (product, item, acquired_at, indexed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (product, item) DO UPDATE SET acquired_at = excluded.acquired_at, indexed_at = excluded.indexed_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now().UTC().Format(time.RFC3339Nano)
		for _, ds := range datasets {
			if ds.Item == "" {
				return errors.New("catalog: empty item identifier")
			}
			if _, err := stmt.ExecContext(ctx, product, ds.Item, ds.AcquiredAt.UTC().Unix(), now); err != nil {
				return err
			}
			written++
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("upsert datasets: %w", err)
	}
	return written, nil
}

// Items returns the identifiers of product acquired within r, ordered by
// acquisition time then identifier.
func (s *Store) Items(ctx context.Context, product string, r Range) ([]string, error) {
	query := "SELECT item FROM datasets WHERE product = ?"
	args := []any{product}
	if !r.From.IsZero() {
		query += " AND acquired_at >= ?"
		args = append(args, r.From.UTC().Unix())
	}
	if !r.To.IsZero() {
		query += " AND acquired_at < ?"
		args = append(args, r.To.UTC().Unix())
	}
	query += " ORDER BY acquired_at, item"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Count returns the number of datasets recorded for product.
func (s *Store) Count(ctx context.Context, product string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM datasets WHERE product = ?", product).Scan(&n); err != nil {
		return 0, fmt.Errorf("count datasets: %w", err)
	}
	return n, nil
}

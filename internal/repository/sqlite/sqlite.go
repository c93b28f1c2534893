package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"iosctl/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository stores oper cache entries for any number of devices in SQLite
type Repository struct {
	db *sql.DB
}

// New opens (creating if needed) the oper cache database
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS oper_cache (
		device TEXT NOT NULL,
		path TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (device, path)
	);

	CREATE INDEX IF NOT EXISTS idx_oper_cache_path ON oper_cache(device, path);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Device returns the oper cache view of one device
func (r *Repository) Device(id string) *DeviceCache {
	return &DeviceCache{db: r.db, device: id}
}

// Devices lists the devices having at least one cached entry
func (r *Repository) Devices(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT device FROM oper_cache ORDER BY device`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// DeviceCache implements repository.OperCache for one device
type DeviceCache struct {
	db     *sql.DB
	device string
}

var _ repository.OperCache = (*DeviceCache)(nil)

func (c *DeviceCache) Get(ctx context.Context, path string) (string, error) {
	var value string
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM oper_cache WHERE device = ? AND path = ?`, c.device, path,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", path, err)
	}
	return value, nil
}

func (c *DeviceCache) Put(ctx context.Context, path, value string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO oper_cache (device, path, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device, path) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, c.device, path, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", path, err)
	}
	return nil
}

func (c *DeviceCache) Delete(ctx context.Context, path string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM oper_cache WHERE device = ? AND path = ?`, c.device, path)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (c *DeviceCache) List(ctx context.Context, prefix string) ([]repository.Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT path, value, updated_at FROM oper_cache
		WHERE device = ? AND substr(path, 1, ?) = ?
		ORDER BY path
	`, c.device, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	defer rows.Close()

	var out []repository.Entry
	for rows.Next() {
		var row entryRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out = append(out, row.toEntry())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return out, nil
}

// ReplacePrefix atomically swaps every entry under prefix for entries
func (c *DeviceCache) ReplacePrefix(ctx context.Context, prefix string, entries map[string]string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM oper_cache WHERE device = ? AND substr(path, 1, ?) = ?`,
		c.device, len(prefix), prefix); err != nil {
		return fmt.Errorf("failed to clear %s: %w", prefix, err)
	}

	now := formatTime(time.Now())
	for path, value := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO oper_cache (device, path, value, updated_at) VALUES (?, ?, ?, ?)`,
			c.device, path, value, now); err != nil {
			return fmt.Errorf("failed to insert %s: %w", path, err)
		}
	}

	return tx.Commit()
}

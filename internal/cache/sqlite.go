package cache

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteBackend persists cache entries in a local SQLite file. This is the
// default durable store.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the cache database at path and
// configures WAL mode.
func NewSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}

	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return b, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sample_cache (
	fingerprint TEXT PRIMARY KEY,
	radiation   REAL NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (b *SQLiteBackend) migrate() error {
	_, err := b.db.Exec(sqliteMigration)
	return eris.Wrap(err, "cache: migrate sqlite")
}

func (b *SQLiteBackend) Get(ctx context.Context, fingerprint string) (float64, bool, error) {
	var v float64
	err := b.db.QueryRowContext(ctx,
		`SELECT radiation FROM sample_cache WHERE fingerprint = ?`, fingerprint,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrap(err, "cache: sqlite get")
	}
	return v, true, nil
}

func (b *SQLiteBackend) Put(ctx context.Context, fingerprint string, value float64) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO sample_cache (fingerprint, radiation) VALUES (?, ?)
		ON CONFLICT (fingerprint) DO UPDATE SET
			radiation = excluded.radiation,
			created_at = datetime('now')`,
		fingerprint, value,
	)
	return eris.Wrap(err, "cache: sqlite put")
}

func (b *SQLiteBackend) Clear(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM sample_cache`)
	return eris.Wrap(err, "cache: sqlite clear")
}

func (b *SQLiteBackend) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := b.db.QueryRowContext(ctx, `SELECT count(*) FROM sample_cache`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "cache: sqlite count")
	}
	return n, nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

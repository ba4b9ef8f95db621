package cache

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/heliomap/solar-cli/internal/db"
)

// PostgresBackend persists cache entries in a Postgres table, for
// deployments where several hosts share one cache.
type PostgresBackend struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool. Migrate must run once before use.
func NewPostgres(pool db.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// Migrate creates the cache table if it does not exist.
func (b *PostgresBackend) Migrate(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sample_cache (
			fingerprint TEXT PRIMARY KEY,
			radiation   DOUBLE PRECISION NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return eris.Wrap(err, "cache: migrate postgres")
}

func (b *PostgresBackend) Get(ctx context.Context, fingerprint string) (float64, bool, error) {
	var v float64
	err := b.pool.QueryRow(ctx,
		`SELECT radiation FROM sample_cache WHERE fingerprint = $1`, fingerprint,
	).Scan(&v)
	if eris.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrap(err, "cache: postgres get")
	}
	return v, true, nil
}

func (b *PostgresBackend) Put(ctx context.Context, fingerprint string, value float64) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO sample_cache (fingerprint, radiation, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (fingerprint) DO UPDATE SET
			radiation = EXCLUDED.radiation,
			created_at = now()`,
		fingerprint, value,
	)
	return eris.Wrap(err, "cache: postgres put")
}

func (b *PostgresBackend) Clear(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `DELETE FROM sample_cache`)
	return eris.Wrap(err, "cache: postgres clear")
}

func (b *PostgresBackend) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := b.pool.QueryRow(ctx, `SELECT count(*) FROM sample_cache`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "cache: postgres count")
	}
	return n, nil
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

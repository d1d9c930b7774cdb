package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/missedcall/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS processed_phones (
	id           BIGSERIAL PRIMARY KEY,
	phone_number TEXT NOT NULL UNIQUE,
	owner        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_processed_phones_created_at ON processed_phones(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, rows []ProcessedPhone) error {
	rows = dedupe(rows)
	if len(rows) == 0 {
		return nil
	}

	now := time.Now().UTC()
	values := make([][]any, len(rows))
	for i, r := range rows {
		created := r.CreatedAt
		if created.IsZero() {
			created = now
		}
		values[i] = []any{r.Phone, r.Owner, created}
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:         "processed_phones",
		Columns:       []string{"phone_number", "owner", "created_at"},
		ConflictKeys:  []string{"phone_number"},
		UpdateCols:    []string{"owner"},
		SkipUnchanged: true,
	}, values)
	return eris.Wrap(err, "postgres: mark processed")
}

func (s *PostgresStore) IsProcessed(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_phones WHERE phone_number = $1)`, phone,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: is processed %s", phone)
	}
	return exists, nil
}

func (s *PostgresStore) ListProcessed(ctx context.Context, limit int) ([]ProcessedPhone, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT phone_number, owner, created_at FROM processed_phones
		 ORDER BY created_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list processed")
	}
	defer rows.Close()

	var out []ProcessedPhone
	for rows.Next() {
		var p ProcessedPhone
		if err := rows.Scan(&p.Phone, &p.Owner, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan processed")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate processed")
}

func (s *PostgresStore) ClearProcessed(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM processed_phones`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: clear processed")
	}
	return tag.RowsAffected(), nil
}

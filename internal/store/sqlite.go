package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS processed_phones (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	phone_number TEXT NOT NULL UNIQUE,
	owner        TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_processed_phones_created_at ON processed_phones(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, rows []ProcessedPhone) error {
	rows = dedupe(rows)
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin mark processed")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO processed_phones (phone_number, owner, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(phone_number) DO UPDATE SET owner = excluded.owner`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare mark processed")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, r := range rows {
		created := r.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx, r.Phone, r.Owner, created); err != nil {
			return eris.Wrapf(err, "sqlite: mark processed %s", r.Phone)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit mark processed")
}

func (s *SQLiteStore) IsProcessed(ctx context.Context, phone string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_phones WHERE phone_number = ?`, phone,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: is processed %s", phone)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListProcessed(ctx context.Context, limit int) ([]ProcessedPhone, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT phone_number, owner, created_at FROM processed_phones
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list processed")
	}
	defer rows.Close() //nolint:errcheck

	var out []ProcessedPhone
	for rows.Next() {
		var p ProcessedPhone
		if err := rows.Scan(&p.Phone, &p.Owner, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan processed")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate processed")
}

func (s *SQLiteStore) ClearProcessed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM processed_phones`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear processed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear processed rows affected")
	}
	return n, nil
}

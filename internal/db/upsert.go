package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes one bulk merge into a table with a unique key.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // columns carried by each row, in row order
	ConflictKeys []string // unique key columns
	UpdateCols   []string // columns overwritten on conflict; nil means every non-key column
	// SkipUnchanged leaves conflicting rows alone when none of UpdateCols
	// differ, so re-marking an unchanged phone does not rewrite the row.
	SkipUnchanged bool
}

// upsertPlan is the SQL for one BulkUpsert call.
type upsertPlan struct {
	staging   pgx.Identifier
	createSQL string
	mergeSQL  string
}

func planUpsert(cfg UpsertConfig) (upsertPlan, error) {
	if len(cfg.Columns) == 0 {
		return upsertPlan{}, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return upsertPlan{}, eris.New("db: upsert: no conflict keys specified")
	}

	update := cfg.UpdateCols
	if update == nil {
		update = nonKeyColumns(cfg.Columns, cfg.ConflictKeys)
	}

	staging := pgx.Identifier{"_tmp_upsert_" + strings.ReplaceAll(cfg.Table, ".", "_")}
	target := sanitizeTable(cfg.Table)
	cols := quoteAndJoin(cfg.Columns)

	merge := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s)",
		target, cols, cols, staging.Sanitize(), quoteAndJoin(cfg.ConflictKeys))

	if len(update) == 0 {
		merge += " DO NOTHING"
	} else {
		sets := make([]string, len(update))
		for i, col := range update {
			q := pgx.Identifier{col}.Sanitize()
			sets[i] = q + " = EXCLUDED." + q
		}
		merge += " DO UPDATE SET " + strings.Join(sets, ", ")
		if cfg.SkipUnchanged {
			merge += fmt.Sprintf(" WHERE (%s) IS DISTINCT FROM (%s)",
				qualified(target, update), qualified("EXCLUDED", update))
		}
	}

	return upsertPlan{
		staging:   staging,
		createSQL: fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP", staging.Sanitize(), target),
		mergeSQL:  merge,
	}, nil
}

// BulkUpsert stages rows with COPY into a temp table dropped on commit, then
// merges them into cfg.Table with INSERT ... ON CONFLICT in the same
// transaction. It returns the number of rows inserted or updated.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	plan, err := planUpsert(cfg)
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, plan.createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}
	if _, err := tx.CopyFrom(ctx, plan.staging, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, plan.mergeSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

func nonKeyColumns(cols, keys []string) []string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var out []string
	for _, c := range cols {
		if !isKey[c] {
			out = append(out, c)
		}
	}
	return out
}

// sanitizeTable quotes a table name, splitting an optional schema prefix.
func sanitizeTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

// qualified renders "prefix"."col" for each column, comma separated.
func qualified(prefix string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + "." + pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(out, ", ")
}

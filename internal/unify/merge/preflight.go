package merge

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/employer-unify/internal/config"
	"github.com/sells-group/employer-unify/internal/db"
)

// Preflight validates the dependent- and enrichment-table configuration
// against the live schema before any merge writes. A silently-omitted or
// misspelled foreign-key table is a data-loss bug, so any gap is fatal here
// rather than a runtime condition to recover from.
func Preflight(ctx context.Context, pool db.Pool, cfg config.MergeConfig) error {
	if len(cfg.DependentTables) == 0 {
		return eris.New("merge: no dependent tables configured; refusing to merge without a migration list")
	}

	for _, dt := range cfg.DependentTables {
		if dt.Table == "" || dt.Column == "" {
			return eris.Errorf("merge: dependent table entry %q needs table and column", dt.Table)
		}
		if err := columnExists(ctx, pool, dt.Table, dt.Column); err != nil {
			return err
		}
		if dt.UniqueWith != "" {
			if err := columnExists(ctx, pool, dt.Table, dt.UniqueWith); err != nil {
				return err
			}
		}
	}

	for _, et := range cfg.EnrichmentTables {
		if et.Table == "" || et.Column == "" {
			return eris.Errorf("merge: enrichment table entry %q needs table and column", et.Table)
		}
		if err := columnExists(ctx, pool, et.Table, et.Column); err != nil {
			return err
		}
		for _, fill := range et.FillColumns {
			if err := columnExists(ctx, pool, et.Table, fill); err != nil {
				return err
			}
		}
	}

	return nil
}

func columnExists(ctx context.Context, pool db.Pool, table, column string) error {
	schema := "public"
	name := table
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		schema, name = parts[0], parts[1]
	}

	var ok bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM information_schema.columns
		     WHERE table_schema = $1 AND table_name = $2 AND column_name = $3
		 )`,
		schema, name, column,
	).Scan(&ok)
	if err != nil {
		return eris.Wrapf(err, "merge: preflight check %s.%s", table, column)
	}
	if !ok {
		return eris.Errorf("merge: configured column %s.%s does not exist", table, column)
	}
	return nil
}

// qualify renders a possibly schema-qualified table name safely.
func qualify(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quote(column string) string {
	return pgx.Identifier{column}.Sanitize()
}

package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/employer-unify/internal/config"
	"github.com/sells-group/employer-unify/internal/db"
	"github.com/sells-group/employer-unify/internal/model"
)

// Adapter reads one configured external source table and exposes its rows as
// uniform source records. Pure read: no matching logic, no writes to the
// source table.
type Adapter struct {
	pool db.Pool
	src  config.SourceTable
}

// NewAdapter creates an adapter for one source table descriptor.
func NewAdapter(pool db.Pool, src config.SourceTable) *Adapter {
	return &Adapter{pool: pool, src: src}
}

// Records streams all rows of the source table as SourceRecords with both
// normalization passes applied.
func (a *Adapter) Records(ctx context.Context) ([]model.SourceRecord, error) {
	if a.src.Table == "" || a.src.IDColumn == "" || a.src.NameColumn == "" {
		return nil, eris.Errorf("adapter: source %q needs table, id_column and name_column", a.src.System)
	}

	rows, err := a.pool.Query(ctx, a.buildQuery())
	if err != nil {
		return nil, eris.Wrapf(err, "adapter: query source %s", a.src.System)
	}
	defer rows.Close()

	var recs []model.SourceRecord
	for rows.Next() {
		var id, name, state, city, street, zip, identifier string
		if err := rows.Scan(&id, &name, &state, &city, &street, &zip, &identifier); err != nil {
			return nil, eris.Wrapf(err, "adapter: scan source %s", a.src.System)
		}
		recs = append(recs, NewSourceRecord(a.src.System, id, name, state, city, street, zip, identifier))
	}
	return recs, eris.Wrapf(rows.Err(), "adapter: iterate source %s", a.src.System)
}

// buildQuery assembles the uniform SELECT over the configured columns.
// Optional columns not present in the descriptor select as empty strings so
// the scan shape is fixed.
func (a *Adapter) buildQuery() string {
	col := func(name string) string {
		if name == "" {
			return "''"
		}
		return fmt.Sprintf("COALESCE(%s::TEXT, '')", pgx.Identifier{name}.Sanitize())
	}

	return fmt.Sprintf(
		"SELECT %s, %s, %s, %s, %s, %s, %s FROM %s",
		col(a.src.IDColumn),
		col(a.src.NameColumn),
		col(a.src.StateColumn),
		col(a.src.CityColumn),
		col(a.src.StreetColumn),
		col(a.src.ZipColumn),
		col(a.src.IdentifierColumn),
		sanitizeTable(a.src.Table),
	)
}

// NewSourceRecord builds a normalized source record from raw source fields.
func NewSourceRecord(system, id, name, state, city, street, zip, identifier string) model.SourceRecord {
	return model.SourceRecord{
		SourceSystem:   system,
		SourceID:       id,
		DisplayName:    name,
		NormalizedName: NormalizeName(name),
		AggressiveName: AggressiveNormalizeName(name),
		State:          NormalizeName(state),
		City:           city,
		Street:         street,
		Zip:            Zip5(zip),
		Identifier:     identifier,
		IngestedAt:     time.Now().UTC(),
	}
}

// sourceRecordColumns is the column order used for bulk loads into
// labor_data.source_records.
var sourceRecordColumns = []string{
	"source_system", "source_id", "display_name", "normalized_name", "aggressive_name",
	"state", "city", "street", "zip", "identifier", "attributes",
}

// LoadRecords bulk-upserts source records into labor_data.source_records.
// Re-ingestion of the same (source_system, source_id) updates the row in
// place rather than duplicating it.
func LoadRecords(ctx context.Context, pool db.Pool, recs []model.SourceRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		var attrs []byte
		if len(r.Attributes) > 0 {
			var err error
			attrs, err = json.Marshal(r.Attributes)
			if err != nil {
				return 0, eris.Wrapf(err, "adapter: marshal attributes %s/%s", r.SourceSystem, r.SourceID)
			}
		}
		rows = append(rows, []any{
			r.SourceSystem, r.SourceID, r.DisplayName, r.NormalizedName, r.AggressiveName,
			r.State, r.City, r.Street, r.Zip, r.Identifier, attrs,
		})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "labor_data.source_records",
		Columns:      sourceRecordColumns,
		ConflictKeys: []string{"source_system", "source_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "adapter: load source records")
	}
	return n, nil
}

// sanitizeTable handles schema-qualified names in source descriptors.
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

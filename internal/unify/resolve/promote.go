package resolve

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/employer-unify/internal/db"
	"github.com/sells-group/employer-unify/internal/model"
)

// PromoteSummary reports one promotion run.
type PromoteSummary struct {
	RunID    string `json:"run_id"`
	Promoted int    `json:"promoted"`
}

// Promote creates a canonical employer for every source record of a system
// that still has no active match after a match run, and records the backing
// edge so "what backs this employer" stays answerable. Each record commits in
// its own transaction; a cancelled run resumes with the records that are
// still unmatched.
func Promote(ctx context.Context, pool db.Pool, system string) (*PromoteSummary, error) {
	log := zap.L().With(zap.String("component", "promote"), zap.String("system", system))

	recs, err := unmatchedRecords(ctx, pool, system)
	if err != nil {
		return nil, err
	}

	summary := &PromoteSummary{RunID: uuid.New().String()}
	for _, rec := range recs {
		if ctx.Err() != nil {
			return summary, eris.Wrap(ctx.Err(), "promote: cancelled")
		}
		if err := promoteOne(ctx, pool, rec, summary.RunID); err != nil {
			return summary, err
		}
		summary.Promoted++
	}

	log.Info("promotion complete",
		zap.String("run_id", summary.RunID),
		zap.Int("promoted", summary.Promoted),
	)
	return summary, nil
}

// promoteOne creates the employer and its ledger edge atomically. The record
// is known to have no active edge, so the edge is inserted directly rather
// than through the superseding path.
func promoteOne(ctx context.Context, pool db.Pool, rec model.SourceRecord, runID string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "promote: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var employerID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO labor_data.employers
		     (display_name, normalized_name, aggressive_name, state, city, street, zip, identifier)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING employer_id`,
		rec.DisplayName, rec.NormalizedName, rec.AggressiveName,
		rec.State, rec.City, rec.Street, rec.Zip, rec.Identifier,
	).Scan(&employerID)
	if err != nil {
		return eris.Wrapf(err, "promote: insert employer for %s/%s", rec.SourceSystem, rec.SourceID)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO labor_data.match_log
		     (source_system, source_id, target_id, match_tier, match_method,
		      confidence_band, confidence_score, status, needs_review, cross_region_ok, run_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, false, $9)`,
		rec.SourceSystem, rec.SourceID, employerID,
		string(model.TierDeterministic), model.MethodPromoted,
		string(model.BandHigh), 1.0, string(model.StatusActive), runID,
	); err != nil {
		return eris.Wrapf(err, "promote: record edge for %s/%s", rec.SourceSystem, rec.SourceID)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "promote: commit %s/%s", rec.SourceSystem, rec.SourceID)
	}
	return nil
}

// unmatchedRecords loads the records of a system with no active ledger edge.
func unmatchedRecords(ctx context.Context, pool db.Pool, system string) ([]model.SourceRecord, error) {
	rows, err := pool.Query(ctx,
		`SELECT source_system, source_id, display_name, normalized_name, aggressive_name,
		        state, city, street, zip, identifier
		 FROM labor_data.source_records r
		 WHERE source_system = $1
		   AND NOT EXISTS (
		       SELECT 1 FROM labor_data.match_log m
		       WHERE m.source_system = r.source_system
		         AND m.source_id = r.source_id
		         AND m.status = 'active'
		   )
		 ORDER BY source_id`,
		system,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "promote: load unmatched %s", system)
	}
	defer rows.Close()

	var recs []model.SourceRecord
	for rows.Next() {
		var r model.SourceRecord
		if err := rows.Scan(&r.SourceSystem, &r.SourceID, &r.DisplayName, &r.NormalizedName,
			&r.AggressiveName, &r.State, &r.City, &r.Street, &r.Zip, &r.Identifier); err != nil {
			return nil, eris.Wrap(err, "promote: scan record")
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

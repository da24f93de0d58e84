package unify

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/employer-unify/internal/db"
	"github.com/sells-group/employer-unify/internal/model"
)

// Ledger provides read/write access to labor_data.match_log, the append-only
// record of every match edge ever produced. A new match for a source record
// supersedes the prior active row in the same transaction; rows are never
// deleted.
type Ledger struct {
	pool db.Pool
}

// NewLedger creates a Ledger backed by the given connection pool.
func NewLedger(pool db.Pool) *Ledger {
	return &Ledger{pool: pool}
}

const edgeColumns = `id, source_system, source_id, target_id, match_tier, match_method,
	confidence_band, confidence_score, status, needs_review, cross_region_ok, run_id, created_at`

// Record writes a match edge as the new active entry for its source record.
// Any prior active entry is flipped to superseded in the same transaction.
// If the prior active entry already points at the same target via the same
// method with the same score, nothing is written and Record reports false,
// which makes re-running the match engine on identical input a no-op.
func (l *Ledger) Record(ctx context.Context, edge model.MatchEdge) (bool, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "ledger: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var (
		curTarget int64
		curMethod string
		curScore  float64
	)
	err = tx.QueryRow(ctx,
		`SELECT target_id, match_method, confidence_score FROM labor_data.match_log
		 WHERE source_system = $1 AND source_id = $2 AND status = 'active'
		 FOR UPDATE`,
		edge.SourceSystem, edge.SourceID,
	).Scan(&curTarget, &curMethod, &curScore)

	switch {
	case err == nil:
		if curTarget == edge.TargetID && curMethod == edge.Method && curScore == edge.Score {
			return false, nil
		}
		if _, err := tx.Exec(ctx,
			`UPDATE labor_data.match_log SET status = 'superseded'
			 WHERE source_system = $1 AND source_id = $2 AND status = 'active'`,
			edge.SourceSystem, edge.SourceID,
		); err != nil {
			return false, eris.Wrapf(err, "ledger: supersede %s/%s", edge.SourceSystem, edge.SourceID)
		}
	case errors.Is(err, pgx.ErrNoRows):
		// First match for this source record.
	default:
		return false, eris.Wrapf(err, "ledger: lookup active %s/%s", edge.SourceSystem, edge.SourceID)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO labor_data.match_log
		 (source_system, source_id, target_id, match_tier, match_method,
		  confidence_band, confidence_score, status, needs_review, cross_region_ok, run_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', $8, $9, $10)`,
		edge.SourceSystem, edge.SourceID, edge.TargetID, string(edge.Tier), edge.Method,
		string(edge.Band), edge.Score, edge.NeedsReview, edge.CrossRegionOK, edge.RunID,
	); err != nil {
		return false, eris.Wrapf(err, "ledger: insert edge %s/%s", edge.SourceSystem, edge.SourceID)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, eris.Wrap(err, "ledger: commit")
	}
	return true, nil
}

// ActiveTarget returns the currently active edge for a source record, or nil
// if the record is unmatched.
func (l *Ledger) ActiveTarget(ctx context.Context, system, id string) (*model.MatchEdge, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT `+edgeColumns+` FROM labor_data.match_log
		 WHERE source_system = $1 AND source_id = $2 AND status = 'active'`,
		system, id,
	)
	edge, err := scanEdge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "ledger: active target %s/%s", system, id)
	}
	return edge, nil
}

// History returns the full match history for a source record, most recent
// first, including superseded and rejected entries.
func (l *Ledger) History(ctx context.Context, system, id string) ([]model.MatchEdge, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT `+edgeColumns+` FROM labor_data.match_log
		 WHERE source_system = $1 AND source_id = $2
		 ORDER BY created_at DESC, id DESC`,
		system, id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: history %s/%s", system, id)
	}
	defer rows.Close()
	return collectEdges(rows)
}

// MatchedIDs returns the set of source IDs within a system that already have
// an active edge. The match engine uses it to skip already-matched records.
func (l *Ledger) MatchedIDs(ctx context.Context, system string) (map[string]bool, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT source_id FROM labor_data.match_log
		 WHERE source_system = $1 AND status = 'active'`,
		system,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: matched ids for %s", system)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "ledger: scan matched id")
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// ActiveInternalEdges returns the active duplicate-pair edges produced by the
// internal dedupe pass, the input to canonical clustering.
func (l *Ledger) ActiveInternalEdges(ctx context.Context) ([]model.MatchEdge, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT `+edgeColumns+` FROM labor_data.match_log
		 WHERE source_system = $1 AND status = 'active' AND needs_review = false
		 ORDER BY id`,
		model.InternalDupSystem,
	)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: active internal edges")
	}
	defer rows.Close()
	return collectEdges(rows)
}

// FlaggedForReview returns active edges that were written with the ambiguity
// flag set. The review workflow itself is external; this only surfaces them.
func (l *Ledger) FlaggedForReview(ctx context.Context, system string) ([]model.MatchEdge, error) {
	query := `SELECT ` + edgeColumns + ` FROM labor_data.match_log
		 WHERE status = 'active' AND needs_review = true`
	args := []any{}
	if system != "" {
		query += ` AND source_system = $1`
		args = append(args, system)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: flagged for review")
	}
	defer rows.Close()
	return collectEdges(rows)
}

// MethodStat aggregates active-edge counts and confidence for one match method.
type MethodStat struct {
	Method   string  `json:"method"`
	Tier     string  `json:"tier"`
	Count    int64   `json:"count"`
	High     int64   `json:"high"`
	Medium   int64   `json:"medium"`
	Low      int64   `json:"low"`
	AvgScore float64 `json:"avg_score"`
}

// Stats returns the per-method distribution of active edges, consumed by
// downstream quality checks.
func (l *Ledger) Stats(ctx context.Context) ([]MethodStat, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT match_method, match_tier, COUNT(*),
		        COUNT(*) FILTER (WHERE confidence_band = 'HIGH'),
		        COUNT(*) FILTER (WHERE confidence_band = 'MEDIUM'),
		        COUNT(*) FILTER (WHERE confidence_band = 'LOW'),
		        AVG(confidence_score)::FLOAT8
		 FROM labor_data.match_log
		 WHERE status = 'active'
		 GROUP BY match_method, match_tier
		 ORDER BY COUNT(*) DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: stats")
	}
	defer rows.Close()

	var stats []MethodStat
	for rows.Next() {
		var s MethodStat
		if err := rows.Scan(&s.Method, &s.Tier, &s.Count, &s.High, &s.Medium, &s.Low, &s.AvgScore); err != nil {
			return nil, eris.Wrap(err, "ledger: scan stat")
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// BackingRecords returns the active source edges pointing at a canonical
// employer, answering "what source records back this employer."
func (l *Ledger) BackingRecords(ctx context.Context, employerID int64) ([]model.MatchEdge, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT `+edgeColumns+` FROM labor_data.match_log
		 WHERE target_id = $1 AND status = 'active' AND source_system != $2
		 ORDER BY source_system, source_id`,
		employerID, model.InternalDupSystem,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: backing records for %d", employerID)
	}
	defer rows.Close()
	return collectEdges(rows)
}

func scanEdge(row pgx.Row) (*model.MatchEdge, error) {
	var e model.MatchEdge
	var tier, band, status string
	if err := row.Scan(&e.ID, &e.SourceSystem, &e.SourceID, &e.TargetID, &tier, &e.Method,
		&band, &e.Score, &status, &e.NeedsReview, &e.CrossRegionOK, &e.RunID, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Tier = model.MatchTier(tier)
	e.Band = model.ConfidenceBand(band)
	e.Status = model.EdgeStatus(status)
	return &e, nil
}

func collectEdges(rows pgx.Rows) ([]model.MatchEdge, error) {
	var edges []model.MatchEdge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, eris.Wrap(err, "ledger: scan edge")
		}
		edges = append(edges, *edge)
	}
	return edges, eris.Wrap(rows.Err(), "ledger: iterate edges")
}

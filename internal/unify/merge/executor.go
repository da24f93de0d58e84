package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/employer-unify/internal/config"
	"github.com/sells-group/employer-unify/internal/db"
	"github.com/sells-group/employer-unify/internal/model"
	"github.com/sells-group/employer-unify/internal/unify/cluster"
	"github.com/sells-group/employer-unify/internal/unify/resolve"
)

// Executor merges clustered duplicates into their keepers. All writes of one
// batch share an outer transaction; each (keeper, loser) pair runs in its own
// nested transaction, so a failing pair rolls back alone and the batch
// continues.
type Executor struct {
	pool db.Pool
	cfg  config.MergeConfig
}

// NewExecutor creates a merge executor.
func NewExecutor(pool db.Pool, cfg config.MergeConfig) *Executor {
	return &Executor{pool: pool, cfg: cfg}
}

// PairFailure identifies one merge pair that was rolled back.
type PairFailure struct {
	KeptID    int64  `json:"kept_id"`
	DeletedID int64  `json:"deleted_id"`
	Error     string `json:"error"`
}

// BatchSummary is the deterministic report of one merge batch. A partial run
// never looks like a full success: every failed pair is listed.
type BatchSummary struct {
	Clusters  int           `json:"clusters"`
	Merged    int           `json:"merged"`
	Updated   int64         `json:"rows_updated"`
	Conflicts int64         `json:"conflicts_resolved"`
	Failures  []PairFailure `json:"failures,omitempty"`
}

// Run merges every cluster in the batch. Preflight failures and the
// inability to open the outer transaction abort before any writes.
func (e *Executor) Run(ctx context.Context, clusters []cluster.Cluster) (*BatchSummary, error) {
	log := zap.L().With(zap.String("component", "merge"))

	if err := Preflight(ctx, e.pool, e.cfg); err != nil {
		return nil, err
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "merge: begin batch tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	summary := &BatchSummary{Clusters: len(clusters)}
	for _, c := range clusters {
		members, err := e.loadMembers(ctx, tx, c.Members)
		if err != nil {
			return nil, err
		}
		if len(members) < 2 {
			continue
		}

		keeper, losers := SelectKeeper(members)
		for _, loser := range losers {
			counts, err := e.mergePair(ctx, tx, keeper, loser)
			if err != nil {
				log.Warn("merge pair rolled back",
					zap.Int64("kept_id", keeper.ID),
					zap.Int64("deleted_id", loser.ID),
					zap.Error(err),
				)
				summary.Failures = append(summary.Failures, PairFailure{
					KeptID:    keeper.ID,
					DeletedID: loser.ID,
					Error:     err.Error(),
				})
				continue
			}

			summary.Merged++
			for _, moved := range counts {
				summary.Updated += moved.Updated
				summary.Conflicts += moved.ConflictsDeleted
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "merge: commit batch tx")
	}

	log.Info("merge batch complete",
		zap.Int("clusters", summary.Clusters),
		zap.Int("merged", summary.Merged),
		zap.Int64("updated", summary.Updated),
		zap.Int64("conflicts", summary.Conflicts),
		zap.Int("failures", len(summary.Failures)),
	)
	return summary, nil
}

// mergePair migrates one loser into the keeper inside a nested transaction.
// On error the caller gets the pair's rollback already done.
func (e *Executor) mergePair(ctx context.Context, outer pgx.Tx, keeper, loser model.Employer) (map[string]model.Moved, error) {
	tx, err := outer.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "merge: begin pair savepoint")
	}

	counts, err := e.migrateReferences(ctx, tx, keeper.ID, loser.ID)
	if err == nil {
		err = e.writeAudit(ctx, tx, keeper, loser, counts)
	}
	if err == nil {
		err = deleteEmployer(ctx, tx, loser.ID)
	}
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "merge: release pair savepoint")
	}
	return counts, nil
}

// migrateReferences re-points every dependent-table row and folds enrichment
// rows, returning per-table counts.
func (e *Executor) migrateReferences(ctx context.Context, tx pgx.Tx, keeperID, loserID int64) (map[string]model.Moved, error) {
	counts := make(map[string]model.Moved)

	for _, dt := range e.cfg.DependentTables {
		var moved model.Moved

		if dt.UniqueWith != "" {
			// Loser rows that would collide with an existing keeper row are
			// deleted, counted apart from plain updates.
			tag, err := tx.Exec(ctx, fmt.Sprintf(
				`DELETE FROM %s l WHERE l.%s = $1
				   AND EXISTS (SELECT 1 FROM %s k WHERE k.%s = $2 AND k.%s = l.%s)`,
				qualify(dt.Table), quote(dt.Column),
				qualify(dt.Table), quote(dt.Column), quote(dt.UniqueWith), quote(dt.UniqueWith),
			), loserID, keeperID)
			if err != nil {
				return nil, eris.Wrapf(err, "merge: delete conflicts in %s", dt.Table)
			}
			moved.ConflictsDeleted = tag.RowsAffected()
		}

		tag, err := tx.Exec(ctx, fmt.Sprintf(
			"UPDATE %s SET %s = $1 WHERE %s = $2",
			qualify(dt.Table), quote(dt.Column), quote(dt.Column),
		), keeperID, loserID)
		if err != nil {
			return nil, eris.Wrapf(err, "merge: re-point %s", dt.Table)
		}
		moved.Updated = tag.RowsAffected()
		counts[dt.Table] = moved
	}

	for _, et := range e.cfg.EnrichmentTables {
		moved, err := foldEnrichment(ctx, tx, et, keeperID, loserID)
		if err != nil {
			return nil, err
		}
		counts[et.Table] = moved
	}

	moved, err := migrateLedger(ctx, tx, keeperID, loserID)
	if err != nil {
		return nil, err
	}
	counts["labor_data.match_log"] = moved

	return counts, nil
}

// migrateLedger moves the ledger's own references off the loser before its
// row is deleted. Active cross-source edges targeting the loser are
// superseded and re-issued against the keeper, so the full history survives
// and "what backs this employer" keeps answering with the loser's sources.
// The internal duplicate edges that triggered the merge are retired; they
// have served their purpose.
func migrateLedger(ctx context.Context, tx pgx.Tx, keeperID, loserID int64) (model.Moved, error) {
	var moved model.Moved

	tag, err := tx.Exec(ctx,
		`WITH superseded AS (
		     UPDATE labor_data.match_log SET status = 'superseded'
		     WHERE target_id = $1 AND status = 'active' AND source_system != $3
		     RETURNING source_system, source_id, match_tier, match_method,
		               confidence_band, confidence_score, needs_review, cross_region_ok, run_id
		 )
		 INSERT INTO labor_data.match_log
		     (source_system, source_id, target_id, match_tier, match_method,
		      confidence_band, confidence_score, status, needs_review, cross_region_ok, run_id)
		 SELECT source_system, source_id, $2, match_tier, match_method,
		        confidence_band, confidence_score, 'active', needs_review, cross_region_ok, run_id
		 FROM superseded`,
		loserID, keeperID, model.InternalDupSystem,
	)
	if err != nil {
		return moved, eris.Wrap(err, "merge: re-point ledger edges")
	}
	moved.Updated = tag.RowsAffected()

	if _, err := tx.Exec(ctx,
		`UPDATE labor_data.match_log SET status = 'superseded'
		 WHERE source_system = $1 AND status = 'active'
		   AND (source_id = $2 OR target_id = $3)`,
		model.InternalDupSystem, strconv.FormatInt(loserID, 10), loserID,
	); err != nil {
		return moved, eris.Wrap(err, "merge: retire internal duplicate edges")
	}

	return moved, nil
}

// foldEnrichment handles a 1:1 crosswalk table: when only the loser has a
// row it is re-pointed; when both have one, missing keeper fields are filled
// from the loser (first non-null wins) and the loser row is deleted.
func foldEnrichment(ctx context.Context, tx pgx.Tx, et config.EnrichmentTable, keeperID, loserID int64) (model.Moved, error) {
	var moved model.Moved

	tag, err := tx.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET %s = $1 WHERE %s = $2
		   AND NOT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`,
		qualify(et.Table), quote(et.Column), quote(et.Column),
		qualify(et.Table), quote(et.Column),
	), keeperID, loserID)
	if err != nil {
		return moved, eris.Wrapf(err, "merge: re-point enrichment %s", et.Table)
	}
	moved.Updated = tag.RowsAffected()

	if len(et.FillColumns) > 0 {
		sets := ""
		for i, f := range et.FillColumns {
			if i > 0 {
				sets += ", "
			}
			sets += fmt.Sprintf("%s = COALESCE(k.%s, l.%s)", quote(f), quote(f), quote(f))
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(
			"UPDATE %s k SET %s FROM %s l WHERE k.%s = $1 AND l.%s = $2",
			qualify(et.Table), sets, qualify(et.Table), quote(et.Column), quote(et.Column),
		), keeperID, loserID); err != nil {
			return moved, eris.Wrapf(err, "merge: fill enrichment %s", et.Table)
		}
	}

	tag, err = tx.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE %s = $1",
		qualify(et.Table), quote(et.Column),
	), loserID)
	if err != nil {
		return moved, eris.Wrapf(err, "merge: delete enrichment loser row %s", et.Table)
	}
	moved.ConflictsDeleted = tag.RowsAffected()

	return moved, nil
}

// writeAudit records the pair in the permanent merge log.
func (e *Executor) writeAudit(ctx context.Context, tx pgx.Tx, keeper, loser model.Employer, counts map[string]model.Moved) error {
	payload, err := json.Marshal(counts)
	if err != nil {
		return eris.Wrap(err, "merge: marshal table counts")
	}

	score := resolve.Similarity(keeper.AggressiveName, loser.AggressiveName)
	if _, err := tx.Exec(ctx,
		`INSERT INTO labor_data.merge_log (kept_id, deleted_id, similarity_score, table_counts)
		 VALUES ($1, $2, $3, $4)`,
		keeper.ID, loser.ID, score, payload,
	); err != nil {
		return eris.Wrap(err, "merge: write merge log")
	}
	return nil
}

func deleteEmployer(ctx context.Context, tx pgx.Tx, id int64) error {
	tag, err := tx.Exec(ctx, "DELETE FROM labor_data.employers WHERE employer_id = $1", id)
	if err != nil {
		return eris.Wrapf(err, "merge: delete employer %d", id)
	}
	if tag.RowsAffected() != 1 {
		return eris.Errorf("merge: employer %d not found for deletion", id)
	}
	return nil
}

// querier is the read surface shared by the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadMembers loads cluster members with their relation counts across all
// dependent tables, the evidence keeper selection ranks on.
func (e *Executor) loadMembers(ctx context.Context, q querier, ids []int64) ([]model.Employer, error) {
	rows, err := q.Query(ctx,
		`SELECT employer_id, display_name, aggressive_name, state, reported_size
		 FROM labor_data.employers WHERE employer_id = ANY($1) ORDER BY employer_id`,
		ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "merge: load cluster members")
	}
	defer rows.Close()

	var members []model.Employer
	for rows.Next() {
		var emp model.Employer
		if err := rows.Scan(&emp.ID, &emp.DisplayName, &emp.AggressiveName, &emp.State, &emp.ReportedSize); err != nil {
			return nil, eris.Wrap(err, "merge: scan member")
		}
		members = append(members, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "merge: iterate members")
	}

	relations, err := e.countRelations(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range members {
		members[i].RelationCount = relations[members[i].ID]
	}
	return members, nil
}

// countRelations sums dependent-table references per employer.
func (e *Executor) countRelations(ctx context.Context, q querier, ids []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(ids))
	for _, dt := range e.cfg.DependentTables {
		rows, err := q.Query(ctx, fmt.Sprintf(
			"SELECT %s, COUNT(*) FROM %s WHERE %s = ANY($1) GROUP BY %s",
			quote(dt.Column), qualify(dt.Table), quote(dt.Column), quote(dt.Column),
		), ids)
		if err != nil {
			return nil, eris.Wrapf(err, "merge: count relations in %s", dt.Table)
		}
		for rows.Next() {
			var id, n int64
			if err := rows.Scan(&id, &n); err != nil {
				rows.Close()
				return nil, eris.Wrapf(err, "merge: scan relation count %s", dt.Table)
			}
			out[id] += n
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, eris.Wrapf(err, "merge: iterate relation counts %s", dt.Table)
		}
	}
	return out, nil
}

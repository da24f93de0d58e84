package merge

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/employer-unify/internal/model"
	"github.com/sells-group/employer-unify/internal/unify/cluster"
)

// PlannedMerge reports what one (keeper, loser) pair would change.
type PlannedMerge struct {
	KeptID      int64                  `json:"kept_id"`
	DeletedID   int64                  `json:"deleted_id"`
	KeptName    string                 `json:"kept_name"`
	DeletedName string                 `json:"deleted_name"`
	TableCounts map[string]model.Moved `json:"table_counts"`
}

// DryRunReport is the zero-write preview of a merge batch.
type DryRunReport struct {
	Clusters  int            `json:"clusters"`
	Pairs     []PlannedMerge `json:"pairs"`
	Updated   int64          `json:"rows_updated"`
	Conflicts int64          `json:"conflicts_resolved"`
}

// DryRun computes exactly what Run would change, with zero writes. The
// operational workflow requires this preview before any batch is accepted.
func (e *Executor) DryRun(ctx context.Context, clusters []cluster.Cluster) (*DryRunReport, error) {
	log := zap.L().With(zap.String("component", "merge"))

	if err := Preflight(ctx, e.pool, e.cfg); err != nil {
		return nil, err
	}

	report := &DryRunReport{Clusters: len(clusters)}
	for _, c := range clusters {
		members, err := e.loadMembers(ctx, e.pool, c.Members)
		if err != nil {
			return nil, err
		}
		if len(members) < 2 {
			continue
		}

		keeper, losers := SelectKeeper(members)
		for _, loser := range losers {
			counts, err := e.planPair(ctx, keeper.ID, loser.ID)
			if err != nil {
				return nil, err
			}

			pair := PlannedMerge{
				KeptID:      keeper.ID,
				DeletedID:   loser.ID,
				KeptName:    keeper.DisplayName,
				DeletedName: loser.DisplayName,
				TableCounts: counts,
			}
			report.Pairs = append(report.Pairs, pair)
			for _, moved := range counts {
				report.Updated += moved.Updated
				report.Conflicts += moved.ConflictsDeleted
			}
		}
	}

	log.Info("dry run complete",
		zap.Int("clusters", report.Clusters),
		zap.Int("pairs", len(report.Pairs)),
		zap.Int64("would_update", report.Updated),
		zap.Int64("would_resolve_conflicts", report.Conflicts),
	)
	return report, nil
}

// planPair counts the rows each table would move for one pair.
func (e *Executor) planPair(ctx context.Context, keeperID, loserID int64) (map[string]model.Moved, error) {
	counts := make(map[string]model.Moved)

	for _, dt := range e.cfg.DependentTables {
		var moved model.Moved

		var total int64
		if err := e.pool.QueryRow(ctx, fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE %s = $1",
			qualify(dt.Table), quote(dt.Column),
		), loserID).Scan(&total); err != nil {
			return nil, eris.Wrapf(err, "merge: dry-run count %s", dt.Table)
		}

		if dt.UniqueWith != "" {
			if err := e.pool.QueryRow(ctx, fmt.Sprintf(
				`SELECT COUNT(*) FROM %s l WHERE l.%s = $1
				   AND EXISTS (SELECT 1 FROM %s k WHERE k.%s = $2 AND k.%s = l.%s)`,
				qualify(dt.Table), quote(dt.Column),
				qualify(dt.Table), quote(dt.Column), quote(dt.UniqueWith), quote(dt.UniqueWith),
			), loserID, keeperID).Scan(&moved.ConflictsDeleted); err != nil {
				return nil, eris.Wrapf(err, "merge: dry-run conflict count %s", dt.Table)
			}
		}

		moved.Updated = total - moved.ConflictsDeleted
		counts[dt.Table] = moved
	}

	for _, et := range e.cfg.EnrichmentTables {
		var loserRows, keeperRows int64
		if err := e.pool.QueryRow(ctx, fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE %s = $1",
			qualify(et.Table), quote(et.Column),
		), loserID).Scan(&loserRows); err != nil {
			return nil, eris.Wrapf(err, "merge: dry-run enrichment count %s", et.Table)
		}
		if err := e.pool.QueryRow(ctx, fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE %s = $1",
			qualify(et.Table), quote(et.Column),
		), keeperID).Scan(&keeperRows); err != nil {
			return nil, eris.Wrapf(err, "merge: dry-run enrichment count %s", et.Table)
		}

		var moved model.Moved
		if loserRows > 0 {
			if keeperRows > 0 {
				moved.ConflictsDeleted = loserRows
			} else {
				moved.Updated = loserRows
			}
		}
		counts[et.Table] = moved
	}

	var ledger model.Moved
	if err := e.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM labor_data.match_log
		 WHERE target_id = $1 AND status = 'active' AND source_system != $2`,
		loserID, model.InternalDupSystem,
	).Scan(&ledger.Updated); err != nil {
		return nil, eris.Wrap(err, "merge: dry-run ledger edge count")
	}
	counts["labor_data.match_log"] = ledger

	return counts, nil
}

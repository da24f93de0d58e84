package cluster

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/employer-unify/internal/db"
	"github.com/sells-group/employer-unify/internal/model"
	"github.com/sells-group/employer-unify/internal/unify"
)

// Cluster is one connected component of duplicate employers, with the summary
// fields persisted to labor_data.canonical_groups.
type Cluster struct {
	Members          []int64 `json:"members"`
	CanonicalName    string  `json:"canonical_name"`
	ConsolidatedSize int64   `json:"consolidated_size"`
	MultiRegion      bool    `json:"multi_region"`
}

// Builder recomputes canonical groups from the active internal-duplicate
// edges. Clustering keeps no incremental state of its own: truth lives in the
// ledger, and the group rows are dropped and regenerated on every run.
type Builder struct {
	pool   db.Pool
	ledger *unify.Ledger
}

// NewBuilder creates a cluster builder.
func NewBuilder(pool db.Pool, ledger *unify.Ledger) *Builder {
	return &Builder{pool: pool, ledger: ledger}
}

// Build computes the current partition. Singleton employers are their own
// canonical representative and are not materialized as clusters.
func (b *Builder) Build(ctx context.Context) ([]Cluster, error) {
	log := zap.L().With(zap.String("component", "cluster"))

	employers, err := b.loadEmployers(ctx)
	if err != nil {
		return nil, err
	}

	edges, err := b.ledger.ActiveInternalEdges(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(employers))
	for _, emp := range employers {
		ids = append(ids, emp.ID)
	}
	uf := NewUnionFind(ids)

	byID := make(map[int64]*model.Employer, len(employers))
	for i := range employers {
		byID[employers[i].ID] = &employers[i]
	}

	dropped := 0
	for _, edge := range edges {
		srcID, err := strconv.ParseInt(edge.SourceID, 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "cluster: bad internal edge source id %q", edge.SourceID)
		}
		if !crossRegionAllowed(edge, byID[srcID], byID[edge.TargetID]) {
			dropped++
			continue
		}
		uf.Union(srcID, edge.TargetID)
	}
	if dropped > 0 {
		log.Info("cross-region edges excluded from clustering", zap.Int("dropped", dropped))
	}

	var clusters []Cluster
	for _, members := range uf.Components(2) {
		clusters = append(clusters, summarize(members, byID))
	}
	log.Info("clustering complete",
		zap.Int("edges", len(edges)),
		zap.Int("clusters", len(clusters)),
	)
	return clusters, nil
}

// crossRegionAllowed applies the geographic gate: an edge linking employers
// in different states needs address- or identifier-level evidence, recorded
// on the edge when it was written. A bare name match across states is not
// enough to merge two same-named companies in different cities.
func crossRegionAllowed(edge model.MatchEdge, a, b *model.Employer) bool {
	if a == nil || b == nil {
		return false
	}
	if a.State == "" || b.State == "" || a.State == b.State {
		return true
	}
	return edge.CrossRegionOK ||
		edge.Method == model.MethodExactIdentifier ||
		edge.Method == model.MethodExactAddress
}

// summarize builds the persisted group fields from a component's members.
// The canonical name comes from the largest member, ties to the lowest ID.
func summarize(members []int64, byID map[int64]*model.Employer) Cluster {
	c := Cluster{Members: members}

	var best *model.Employer
	states := map[string]bool{}
	for _, id := range members {
		emp := byID[id]
		if emp == nil {
			continue
		}
		c.ConsolidatedSize += emp.ReportedSize
		if emp.State != "" {
			states[emp.State] = true
		}
		if best == nil || emp.ReportedSize > best.ReportedSize {
			best = emp
		}
	}
	if best != nil {
		c.CanonicalName = best.DisplayName
	}
	c.MultiRegion = len(states) > 1
	return c
}

// RebuildGroups replaces labor_data.canonical_groups with the given partition
// and re-points employers.canonical_group_id, all in one transaction.
func (b *Builder) RebuildGroups(ctx context.Context, clusters []Cluster) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "cluster: begin rebuild tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "UPDATE labor_data.employers SET canonical_group_id = NULL WHERE canonical_group_id IS NOT NULL"); err != nil {
		return eris.Wrap(err, "cluster: clear group assignments")
	}
	if _, err := tx.Exec(ctx, "DELETE FROM labor_data.canonical_groups"); err != nil {
		return eris.Wrap(err, "cluster: clear canonical groups")
	}

	for _, c := range clusters {
		var groupID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO labor_data.canonical_groups
			     (canonical_name, member_count, consolidated_size, is_multi_region)
			 VALUES ($1, $2, $3, $4)
			 RETURNING group_id`,
			c.CanonicalName, len(c.Members), c.ConsolidatedSize, c.MultiRegion,
		).Scan(&groupID)
		if err != nil {
			return eris.Wrapf(err, "cluster: insert group %q", c.CanonicalName)
		}

		if _, err := tx.Exec(ctx,
			"UPDATE labor_data.employers SET canonical_group_id = $1 WHERE employer_id = ANY($2)",
			groupID, c.Members,
		); err != nil {
			return eris.Wrapf(err, "cluster: assign group %d", groupID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "cluster: commit rebuild tx")
	}
	return nil
}

// loadEmployers loads the fields clustering needs for the gate and the group
// summaries.
func (b *Builder) loadEmployers(ctx context.Context) ([]model.Employer, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT employer_id, display_name, state, reported_size
		 FROM labor_data.employers ORDER BY employer_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "cluster: load employers")
	}
	defer rows.Close()

	var employers []model.Employer
	for rows.Next() {
		var emp model.Employer
		if err := rows.Scan(&emp.ID, &emp.DisplayName, &emp.State, &emp.ReportedSize); err != nil {
			return nil, eris.Wrap(err, "cluster: scan employer")
		}
		employers = append(employers, emp)
	}
	return employers, rows.Err()
}

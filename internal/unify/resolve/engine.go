package resolve

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/employer-unify/internal/config"
	"github.com/sells-group/employer-unify/internal/db"
	"github.com/sells-group/employer-unify/internal/model"
	"github.com/sells-group/employer-unify/internal/unify"
)

// Engine runs the tiered matcher over a source system, or over the canonical
// employer table against itself, and writes every accepted edge to the match
// ledger. Work is sharded by state: shards run in parallel but each ledger
// write commits independently, so a cancelled run is safe to resume — the
// shards already processed stay durably matched and the rest are untouched.
type Engine struct {
	pool    db.Pool
	ledger  *unify.Ledger
	th      Thresholds
	workers int
}

// NewEngine creates a match engine with the configured thresholds.
func NewEngine(pool db.Pool, ledger *unify.Ledger, cfg config.MatchConfig) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		pool:    pool,
		ledger:  ledger,
		th:      Thresholds{FuzzyFloor: cfg.FuzzyFloor, FuzzyMedium: cfg.FuzzyMedium},
		workers: workers,
	}
}

// RunOpts controls a match run.
type RunOpts struct {
	// Force re-evaluates records that already have an active edge. The
	// superseding rule keeps the old decision as history either way.
	Force bool
	// States restricts the run to specific state shards; empty means all.
	States []string
}

// RunSummary is the deterministic report of a match run. A partial run never
// looks like a full success: cancelled shards are simply absent from Shards.
type RunSummary struct {
	RunID     string         `json:"run_id"`
	Matched   int            `json:"matched"`
	Skipped   int            `json:"skipped"`
	Unmatched int            `json:"unmatched"`
	Ambiguous int            `json:"ambiguous"`
	Shards    map[string]int `json:"shards"`
}

// MatchSystem matches every record of one source system against the canonical
// employer pool.
func (e *Engine) MatchSystem(ctx context.Context, system string, opts RunOpts) (*RunSummary, error) {
	log := zap.L().With(zap.String("component", "match_engine"), zap.String("system", system))

	pool, err := e.loadTargetPool(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("target pool loaded", zap.Int("candidates", pool.Size()))

	matched := map[string]bool{}
	if !opts.Force {
		matched, err = e.ledger.MatchedIDs(ctx, system)
		if err != nil {
			return nil, err
		}
	}

	states, err := e.sourceStates(ctx, system, opts.States)
	if err != nil {
		return nil, err
	}

	summary := newSummary()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, state := range states {
		g.Go(func() error {
			recs, err := e.loadSourceRecords(gctx, system, state)
			if err != nil {
				return err
			}
			return e.matchShard(gctx, log, pool, recs, state, nil, matched, summary)
		})
	}

	if err := g.Wait(); err != nil {
		return summary.snapshot(), err
	}
	log.Info("match run complete",
		zap.String("run_id", summary.runID),
		zap.Int("matched", summary.matched),
		zap.Int("ambiguous", summary.ambiguous),
	)
	return summary.snapshot(), nil
}

// MatchInternal matches the canonical employer table against itself to find
// duplicate pairs for clustering. Each employer is compared only against
// lower-ID candidates so every pair produces at most one edge.
func (e *Engine) MatchInternal(ctx context.Context, opts RunOpts) (*RunSummary, error) {
	log := zap.L().With(zap.String("component", "match_engine"), zap.String("system", model.InternalDupSystem))

	pool, err := e.loadTargetPool(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("target pool loaded", zap.Int("candidates", pool.Size()))

	matched := map[string]bool{}
	if !opts.Force {
		matched, err = e.ledger.MatchedIDs(ctx, model.InternalDupSystem)
		if err != nil {
			return nil, err
		}
	}

	// Shard the self-match by state too; employers without a state can only
	// match via identifier or address, in the "" shard.
	byState := make(map[string][]model.SourceRecord)
	for i := range pool.employers {
		emp := pool.employers[i]
		rec := model.SourceRecord{
			SourceSystem:   model.InternalDupSystem,
			SourceID:       strconv.FormatInt(emp.ID, 10),
			DisplayName:    emp.DisplayName,
			NormalizedName: emp.NormalizedName,
			AggressiveName: emp.AggressiveName,
			State:          emp.State,
			City:           emp.City,
			Street:         emp.Street,
			Zip:            emp.Zip,
			Identifier:     emp.Identifier,
		}
		byState[emp.State] = append(byState[emp.State], rec)
	}

	states := make([]string, 0, len(byState))
	for s := range byState {
		if len(opts.States) > 0 && !contains(opts.States, s) {
			continue
		}
		states = append(states, s)
	}

	summary := newSummary()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, state := range states {
		recs := byState[state]
		g.Go(func() error {
			return e.matchShard(gctx, log, pool, recs, state, lowerIDOnly, matched, summary)
		})
	}

	if err := g.Wait(); err != nil {
		return summary.snapshot(), err
	}
	log.Info("internal dedupe pass complete",
		zap.String("run_id", summary.runID),
		zap.Int("matched", summary.matched),
		zap.Int("ambiguous", summary.ambiguous),
	)
	return summary.snapshot(), nil
}

// lowerIDOnly builds the self-match exclusion for one record: a candidate is
// eligible only when its ID is strictly below the record's own employer ID.
func lowerIDOnly(rec model.SourceRecord) func(*model.Employer) bool {
	selfID, _ := strconv.ParseInt(rec.SourceID, 10, 64)
	return func(cand *model.Employer) bool { return cand.ID >= selfID }
}

// matchShard evaluates one shard's records and writes accepted edges.
func (e *Engine) matchShard(
	ctx context.Context,
	log *zap.Logger,
	pool *TargetPool,
	recs []model.SourceRecord,
	state string,
	exclude func(model.SourceRecord) func(*model.Employer) bool,
	alreadyMatched map[string]bool,
	summary *runTally,
) error {
	shardMatched := 0
	for _, rec := range recs {
		if ctx.Err() != nil {
			return eris.Wrapf(ctx.Err(), "match: shard %q cancelled", state)
		}
		if alreadyMatched[rec.SourceID] {
			summary.addSkipped()
			continue
		}

		var excl func(*model.Employer) bool
		if exclude != nil {
			excl = exclude(rec)
		}

		result := pool.BestMatch(rec, e.th, excl)
		if result == nil {
			summary.addUnmatched()
			continue
		}

		edge := model.MatchEdge{
			SourceSystem:  rec.SourceSystem,
			SourceID:      rec.SourceID,
			TargetID:      result.Target.ID,
			Tier:          result.Tier,
			Method:        result.Method,
			Band:          result.Band,
			Score:         result.Score,
			NeedsReview:   result.Ambiguous,
			CrossRegionOK: result.CrossRegion,
			RunID:         summary.runID,
		}
		recorded, err := e.ledger.Record(ctx, edge)
		if err != nil {
			return eris.Wrapf(err, "match: shard %q record %s/%s", state, rec.SourceSystem, rec.SourceID)
		}

		if recorded {
			shardMatched++
		}
		summary.addMatched(state, recorded, result.Ambiguous)

		if result.Ambiguous {
			log.Warn("ambiguous match flagged for review",
				zap.String("source_id", rec.SourceID),
				zap.String("method", result.Method),
				zap.Int64("target_id", result.Target.ID),
			)
		}
	}

	log.Debug("shard complete", zap.String("state", state), zap.Int("matched", shardMatched))
	return nil
}

// loadTargetPool loads all canonical employers with their active-edge counts
// (the relation evidence used by the tie-break order).
func (e *Engine) loadTargetPool(ctx context.Context) (*TargetPool, error) {
	rows, err := e.pool.Query(ctx,
		`SELECT e.employer_id, e.display_name, e.normalized_name, e.aggressive_name,
		        e.state, e.city, e.street, e.zip, e.identifier, e.reported_size,
		        COALESCE(m.cnt, 0)
		 FROM labor_data.employers e
		 LEFT JOIN (
		     SELECT target_id, COUNT(*) AS cnt FROM labor_data.match_log
		     WHERE status = 'active' GROUP BY target_id
		 ) m ON m.target_id = e.employer_id
		 ORDER BY e.employer_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "match: load target pool")
	}
	defer rows.Close()

	var employers []model.Employer
	for rows.Next() {
		var emp model.Employer
		if err := rows.Scan(&emp.ID, &emp.DisplayName, &emp.NormalizedName, &emp.AggressiveName,
			&emp.State, &emp.City, &emp.Street, &emp.Zip, &emp.Identifier,
			&emp.ReportedSize, &emp.RelationCount); err != nil {
			return nil, eris.Wrap(err, "match: scan employer")
		}
		employers = append(employers, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "match: iterate employers")
	}
	return NewTargetPool(employers), nil
}

// sourceStates returns the distinct state shards present for a system,
// optionally restricted to an explicit list.
func (e *Engine) sourceStates(ctx context.Context, system string, only []string) ([]string, error) {
	rows, err := e.pool.Query(ctx,
		`SELECT DISTINCT state FROM labor_data.source_records
		 WHERE source_system = $1 ORDER BY state`,
		system,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "match: list states for %s", system)
	}
	defer rows.Close()

	var states []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, eris.Wrap(err, "match: scan state")
		}
		if len(only) > 0 && !contains(only, s) {
			continue
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

// loadSourceRecords loads one state shard of a source system.
func (e *Engine) loadSourceRecords(ctx context.Context, system, state string) ([]model.SourceRecord, error) {
	rows, err := e.pool.Query(ctx,
		`SELECT source_system, source_id, display_name, normalized_name, aggressive_name,
		        state, city, street, zip, identifier
		 FROM labor_data.source_records
		 WHERE source_system = $1 AND state = $2
		 ORDER BY source_id`,
		system, state,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "match: load records %s/%s", system, state)
	}
	defer rows.Close()

	var recs []model.SourceRecord
	for rows.Next() {
		var r model.SourceRecord
		if err := rows.Scan(&r.SourceSystem, &r.SourceID, &r.DisplayName, &r.NormalizedName,
			&r.AggressiveName, &r.State, &r.City, &r.Street, &r.Zip, &r.Identifier); err != nil {
			return nil, eris.Wrap(err, "match: scan source record")
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// runTally is the mutex-protected accumulator behind RunSummary.
type runTally struct {
	mu        sync.Mutex
	runID     string
	matched   int
	skipped   int
	unmatched int
	ambiguous int
	shards    map[string]int
}

func newSummary() *runTally {
	return &runTally{runID: uuid.New().String(), shards: make(map[string]int)}
}

func (t *runTally) addMatched(state string, recorded, ambiguous bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if recorded {
		t.matched++
		t.shards[state]++
	} else {
		t.skipped++
	}
	if ambiguous {
		t.ambiguous++
	}
}

func (t *runTally) addSkipped() {
	t.mu.Lock()
	t.skipped++
	t.mu.Unlock()
}

func (t *runTally) addUnmatched() {
	t.mu.Lock()
	t.unmatched++
	t.mu.Unlock()
}

func (t *runTally) snapshot() *RunSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	shards := make(map[string]int, len(t.shards))
	for k, v := range t.shards {
		shards[k] = v
	}
	return &RunSummary{
		RunID:     t.runID,
		Matched:   t.matched,
		Skipped:   t.skipped,
		Unmatched: t.unmatched,
		Ambiguous: t.ambiguous,
		Shards:    shards,
	}
}

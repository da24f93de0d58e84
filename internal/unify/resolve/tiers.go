package resolve

import (
	"sort"

	"github.com/sells-group/employer-unify/internal/model"
)

// Tier confidence scores for the deterministic tiers. Fuzzy edges carry their
// similarity score instead.
const (
	scoreIdentifier = 1.00
	scoreNameState  = 0.95
	scoreAggressive = 0.90
	scoreAddress    = 0.85
)

// Thresholds carries the configured fuzzy-tier cutoffs.
type Thresholds struct {
	// FuzzyFloor is the minimum similarity for any fuzzy edge; candidates
	// below it are rejected outright.
	FuzzyFloor float64
	// FuzzyMedium is the similarity at which a fuzzy edge is banded MEDIUM.
	FuzzyMedium float64
}

// TierResult is the outcome of evaluating one source record against the
// target pool: the single best match, or ambiguity when two candidates are
// indistinguishable at the same tier.
type TierResult struct {
	Target      *model.Employer
	Tier        model.MatchTier
	Method      string
	Band        model.ConfidenceBand
	Score       float64
	Ambiguous   bool
	CrossRegion bool
}

// TargetPool indexes the canonical employer set for tier evaluation.
// Build it once per run; lookups are map-backed so a full source system can
// be matched without rescanning the pool.
type TargetPool struct {
	employers []model.Employer

	byIdentifier map[string][]*model.Employer
	byNormState  map[string][]*model.Employer
	byAggrState  map[string][]*model.Employer
	byState      map[string][]*model.Employer
	byStreet     map[string][]*model.Employer
}

// NewTargetPool builds lookup indexes over the candidate employers.
func NewTargetPool(employers []model.Employer) *TargetPool {
	p := &TargetPool{
		employers:    employers,
		byIdentifier: make(map[string][]*model.Employer),
		byNormState:  make(map[string][]*model.Employer),
		byAggrState:  make(map[string][]*model.Employer),
		byState:      make(map[string][]*model.Employer),
		byStreet:     make(map[string][]*model.Employer),
	}

	for i := range p.employers {
		e := &p.employers[i]
		if e.Identifier != "" {
			p.byIdentifier[e.Identifier] = append(p.byIdentifier[e.Identifier], e)
		}
		if e.NormalizedName != "" && e.State != "" {
			p.byNormState[e.NormalizedName+"|"+e.State] = append(p.byNormState[e.NormalizedName+"|"+e.State], e)
		}
		if e.AggressiveName != "" && e.State != "" {
			p.byAggrState[e.AggressiveName+"|"+e.State] = append(p.byAggrState[e.AggressiveName+"|"+e.State], e)
		}
		if e.State != "" {
			p.byState[e.State] = append(p.byState[e.State], e)
		}
		if street := NormalizeStreet(e.Street); street != "" {
			p.byStreet[street] = append(p.byStreet[street], e)
		}
	}

	return p
}

// Size returns the number of candidate employers in the pool.
func (p *TargetPool) Size() int { return len(p.employers) }

// BestMatch evaluates the match tiers in strict precedence order and returns
// zero or one best edge for the record. Ties inside a tier are broken by
// relation count, then reported size, then name, then ID, so the result is
// deterministic across runs. Two candidates equal on every tie-break key are
// reported as ambiguous rather than silently picking one.
//
// exclude, when non-nil, removes candidates from consideration; the internal
// dedupe pass uses it to avoid self-matches.
func (p *TargetPool) BestMatch(rec model.SourceRecord, th Thresholds, exclude func(*model.Employer) bool) *TierResult {
	// Tier 1: exact structured identifier. Strong enough to cross regions.
	if rec.Identifier != "" {
		if cands := filter(p.byIdentifier[rec.Identifier], exclude); len(cands) > 0 {
			r := pickBest(cands, uniformScore(scoreIdentifier))
			r.Tier = model.TierDeterministic
			r.Method = model.MethodExactIdentifier
			r.Band = model.BandHigh
			r.CrossRegion = r.Target.State != rec.State
			return r
		}
	}

	// Tier 2: exact normalized name + state.
	if rec.NormalizedName != "" && rec.State != "" {
		if cands := filter(p.byNormState[rec.NormalizedName+"|"+rec.State], exclude); len(cands) > 0 {
			r := pickBest(cands, uniformScore(scoreNameState))
			r.Tier = model.TierDeterministic
			r.Method = model.MethodExactNameState
			r.Band = model.BandHigh
			return r
		}
	}

	// Tier 3: exact aggressively-normalized name + state.
	if rec.AggressiveName != "" && rec.State != "" {
		if cands := filter(p.byAggrState[rec.AggressiveName+"|"+rec.State], exclude); len(cands) > 0 {
			r := pickBest(cands, uniformScore(scoreAggressive))
			r.Tier = model.TierDeterministic
			r.Method = model.MethodAggressiveName
			r.Band = model.BandMedium
			return r
		}
	}

	// Tier 4: fuzzy name similarity, same state. City disagreement (under the
	// typo-tolerant check) disqualifies a candidate; bare string similarity
	// across towns is how unrelated same-named companies get merged.
	if rec.AggressiveName != "" && rec.State != "" {
		var cands []*model.Employer
		scores := make(map[int64]float64)
		for _, e := range filter(p.byState[rec.State], exclude) {
			sim := Similarity(rec.AggressiveName, e.AggressiveName)
			if sim < th.FuzzyFloor {
				continue
			}
			if !CityMatch(rec.City, e.City) {
				continue
			}
			cands = append(cands, e)
			scores[e.ID] = sim
		}
		if len(cands) > 0 {
			r := pickBest(cands, func(e *model.Employer) float64 { return scores[e.ID] })
			r.Tier = model.TierProbabilistic
			r.Method = model.MethodFuzzyNameState
			if r.Score >= th.FuzzyMedium {
				r.Band = model.BandMedium
			} else {
				r.Band = model.BandLow
			}
			return r
		}
	}

	// Tier 5: structured address equality, corroborating when the name alone
	// was inconclusive. Street + city/state, or street + zip5.
	if street := NormalizeStreet(rec.Street); street != "" {
		var cands []*model.Employer
		for _, e := range filter(p.byStreet[street], exclude) {
			sameLocality := e.State == rec.State && rec.State != "" && CityMatch(rec.City, e.City)
			sameZip := Zip5(rec.Zip) != "" && Zip5(rec.Zip) == Zip5(e.Zip)
			if sameLocality || sameZip {
				cands = append(cands, e)
			}
		}
		if len(cands) > 0 {
			r := pickBest(cands, uniformScore(scoreAddress))
			r.Tier = model.TierDeterministic
			r.Method = model.MethodExactAddress
			r.Band = model.BandMedium
			r.CrossRegion = r.Target.State != rec.State
			return r
		}
	}

	return nil
}

func uniformScore(s float64) func(*model.Employer) float64 {
	return func(*model.Employer) float64 { return s }
}

func filter(cands []*model.Employer, exclude func(*model.Employer) bool) []*model.Employer {
	if exclude == nil {
		return cands
	}
	var kept []*model.Employer
	for _, e := range cands {
		if !exclude(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

// pickBest applies the tie-break order (score desc, relation count desc,
// reported size desc, name asc, ID asc) and flags ambiguity when the top two
// candidates are equal on everything but ID.
func pickBest(cands []*model.Employer, score func(*model.Employer) float64) *TierResult {
	sorted := make([]*model.Employer, len(cands))
	copy(sorted, cands)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if score(a) != score(b) {
			return score(a) > score(b)
		}
		if a.RelationCount != b.RelationCount {
			return a.RelationCount > b.RelationCount
		}
		if a.ReportedSize != b.ReportedSize {
			return a.ReportedSize > b.ReportedSize
		}
		if a.NormalizedName != b.NormalizedName {
			return a.NormalizedName < b.NormalizedName
		}
		return a.ID < b.ID
	})

	best := sorted[0]
	r := &TierResult{Target: best, Score: score(best)}

	if len(sorted) > 1 {
		next := sorted[1]
		if score(next) == score(best) &&
			next.RelationCount == best.RelationCount &&
			next.ReportedSize == best.ReportedSize &&
			next.NormalizedName == best.NormalizedName {
			r.Ambiguous = true
		}
	}
	return r
}

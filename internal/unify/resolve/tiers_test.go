package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/employer-unify/internal/model"
)

var testThresholds = Thresholds{FuzzyFloor: 0.55, FuzzyMedium: 0.70}

func emp(id int64, name, state string) model.Employer {
	return model.Employer{
		ID:             id,
		DisplayName:    name,
		NormalizedName: NormalizeName(name),
		AggressiveName: AggressiveNormalizeName(name),
		State:          state,
	}
}

func rec(id, name, state string) model.SourceRecord {
	return NewSourceRecord("whd", id, name, state, "", "", "", "")
}

func TestBestMatch_IdentifierTierWinsFirst(t *testing.T) {
	a := emp(1, "Acme Steel Inc", "NY")
	a.Identifier = "13-1234567"
	b := emp(2, "Acme Steel Inc", "NY")
	pool := NewTargetPool([]model.Employer{a, b})

	r := rec("s1", "Completely Different Name", "CA")
	r.Identifier = "13-1234567"

	result := pool.BestMatch(r, testThresholds, nil)
	require.NotNil(t, result)
	assert.Equal(t, int64(1), result.Target.ID)
	assert.Equal(t, model.MethodExactIdentifier, result.Method)
	assert.Equal(t, model.TierDeterministic, result.Tier)
	assert.Equal(t, model.BandHigh, result.Band)
	assert.True(t, result.CrossRegion, "identifier match across states carries the override")
}

func TestBestMatch_ExactNameState(t *testing.T) {
	pool := NewTargetPool([]model.Employer{emp(1, "Acme Steel Inc", "NY"), emp(2, "Acme Steel Inc", "CA")})

	result := pool.BestMatch(rec("s1", "ACME STEEL INC", "NY"), testThresholds, nil)
	require.NotNil(t, result)
	assert.Equal(t, int64(1), result.Target.ID)
	assert.Equal(t, model.MethodExactNameState, result.Method)
	assert.Equal(t, model.BandHigh, result.Band)
	assert.False(t, result.CrossRegion)
}

func TestBestMatch_AggressiveNameState(t *testing.T) {
	// "Acme Inc" vs "ACME INCORPORATED": normalized names differ, aggressive
	// names agree, so the match lands at tier 3 with a MEDIUM band.
	pool := NewTargetPool([]model.Employer{emp(42, "ACME INCORPORATED", "NY")})

	result := pool.BestMatch(rec("s1", "Acme Inc", "NY"), testThresholds, nil)
	require.NotNil(t, result)
	assert.Equal(t, int64(42), result.Target.ID)
	assert.Equal(t, model.MethodAggressiveName, result.Method)
	assert.Equal(t, model.TierDeterministic, result.Tier)
	assert.Equal(t, model.BandMedium, result.Band)
}

func TestBestMatch_FuzzyTier(t *testing.T) {
	pool := NewTargetPool([]model.Employer{emp(7, "Consolidated Freightways Inc", "OH")})

	result := pool.BestMatch(rec("s1", "Consolidated Freightway", "OH"), testThresholds, nil)
	require.NotNil(t, result)
	assert.Equal(t, model.MethodFuzzyNameState, result.Method)
	assert.Equal(t, model.TierProbabilistic, result.Tier)
	assert.Equal(t, model.BandMedium, result.Band)
	assert.GreaterOrEqual(t, result.Score, 0.70)
}

func TestBestMatch_FuzzyBelowFloorRejected(t *testing.T) {
	pool := NewTargetPool([]model.Employer{emp(7, "Riverside Bakery", "OH")})

	result := pool.BestMatch(rec("s1", "Acme Steel", "OH"), testThresholds, nil)
	assert.Nil(t, result)
}

func TestBestMatch_FuzzyCityDisagreementRejected(t *testing.T) {
	target := emp(7, "Acme Steel", "OH")
	target.City = "Cleveland"
	pool := NewTargetPool([]model.Employer{target})

	r := rec("s1", "Acme Stel", "OH")
	r.City = "Toledo"
	assert.Nil(t, pool.BestMatch(r, testThresholds, nil))

	// Same name, typo'd city spelling still matches.
	r.City = "Clevland"
	result := pool.BestMatch(r, testThresholds, nil)
	require.NotNil(t, result)
	assert.Equal(t, model.MethodFuzzyNameState, result.Method)
}

func TestBestMatch_AddressTierCorroborates(t *testing.T) {
	target := emp(9, "AS Holdings", "NY")
	target.Street = "123 Main Street"
	target.City = "Buffalo"
	pool := NewTargetPool([]model.Employer{target})

	// Name shares nothing, but the normalized street and locality agree.
	r := rec("s1", "Acme Steel Fabrication", "NY")
	r.Street = "123 Main St"
	r.City = "Buffalo"

	result := pool.BestMatch(r, testThresholds, nil)
	require.NotNil(t, result)
	assert.Equal(t, model.MethodExactAddress, result.Method)
	assert.Equal(t, model.BandMedium, result.Band)
}

func TestBestMatch_AddressTierZipCrossRegion(t *testing.T) {
	target := emp(9, "AS Holdings", "NJ")
	target.Street = "123 Main Street"
	target.Zip = "07030-1234"
	pool := NewTargetPool([]model.Employer{target})

	r := rec("s1", "Acme Steel Fabrication", "NY")
	r.Street = "123 Main St"
	r.Zip = "07030"

	result := pool.BestMatch(r, testThresholds, nil)
	require.NotNil(t, result)
	assert.Equal(t, model.MethodExactAddress, result.Method)
	assert.True(t, result.CrossRegion)
}

func TestBestMatch_NoMatch(t *testing.T) {
	pool := NewTargetPool([]model.Employer{emp(1, "Acme Steel", "NY")})
	assert.Nil(t, pool.BestMatch(rec("s1", "Riverside Bakery", "TX"), testThresholds, nil))
}

func TestBestMatch_TieBreakRelationCount(t *testing.T) {
	a := emp(1, "Acme Steel", "NY")
	a.RelationCount = 3
	b := emp(2, "Acme Steel", "NY")
	b.RelationCount = 9
	pool := NewTargetPool([]model.Employer{a, b})

	result := pool.BestMatch(rec("s1", "Acme Steel", "NY"), testThresholds, nil)
	require.NotNil(t, result)
	assert.Equal(t, int64(2), result.Target.ID)
	assert.False(t, result.Ambiguous)
}

func TestBestMatch_TieBreakReportedSize(t *testing.T) {
	a := emp(1, "Acme Steel", "NY")
	a.ReportedSize = 50
	b := emp(2, "Acme Steel", "NY")
	b.ReportedSize = 200
	c := emp(3, "Acme Steel", "NY")
	c.ReportedSize = 10
	pool := NewTargetPool([]model.Employer{a, b, c})

	result := pool.BestMatch(rec("s1", "Acme Steel", "NY"), testThresholds, nil)
	require.NotNil(t, result)
	assert.Equal(t, int64(2), result.Target.ID)
}

func TestBestMatch_AmbiguousFlagged(t *testing.T) {
	// Indistinguishable candidates: same name, state, relations, size.
	pool := NewTargetPool([]model.Employer{emp(1, "Acme Steel", "NY"), emp(2, "Acme Steel", "NY")})

	result := pool.BestMatch(rec("s1", "Acme Steel", "NY"), testThresholds, nil)
	require.NotNil(t, result)
	assert.True(t, result.Ambiguous)
	// Still deterministic: lowest ID wins the provisional target.
	assert.Equal(t, int64(1), result.Target.ID)
}

func TestBestMatch_ExcludeFiltersCandidates(t *testing.T) {
	pool := NewTargetPool([]model.Employer{emp(1, "Acme Steel", "NY"), emp(2, "Acme Steel", "NY")})

	exclude := func(e *model.Employer) bool { return e.ID >= 2 }
	result := pool.BestMatch(rec("s1", "Acme Steel", "NY"), testThresholds, exclude)
	require.NotNil(t, result)
	assert.Equal(t, int64(1), result.Target.ID)
	assert.False(t, result.Ambiguous)
}

func TestBestMatch_DeterministicAcrossRuns(t *testing.T) {
	employers := []model.Employer{
		emp(3, "Acme Steel", "NY"), emp(1, "Acme Steel", "NY"), emp(2, "Acme Stell", "NY"),
	}
	pool := NewTargetPool(employers)
	first := pool.BestMatch(rec("s1", "Acme Steel", "NY"), testThresholds, nil)
	for range 5 {
		again := pool.BestMatch(rec("s1", "Acme Steel", "NY"), testThresholds, nil)
		require.NotNil(t, again)
		assert.Equal(t, first.Target.ID, again.Target.ID)
		assert.Equal(t, first.Method, again.Method)
	}
}

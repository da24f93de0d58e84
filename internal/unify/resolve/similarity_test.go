package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity_Identical(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("ACME STEEL", "ACME STEEL"))
}

func TestSimilarity_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("ACME", ""))
	assert.Equal(t, 0.0, Similarity("", "ACME"))
}

func TestSimilarity_Bounded(t *testing.T) {
	pairs := [][2]string{
		{"ACME STEEL", "ACME STEEL FABRICATION"},
		{"GLOBEX", "INITECH"},
		{"A", "B"},
		{"UNITED PARCEL SERVICE", "UNTED PARCEL SERVICE"},
	}
	for _, p := range pairs {
		s := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0, "%q vs %q", p[0], p[1])
		assert.LessOrEqual(t, s, 1.0, "%q vs %q", p[0], p[1])
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	assert.Equal(t, Similarity("ACME STEEL", "ACME STEL"), Similarity("ACME STEL", "ACME STEEL"))
}

func TestSimilarity_MonotoneInOverlap(t *testing.T) {
	base := "UNITED PARCEL SERVICE"
	closer := Similarity(base, "UNITED PARCEL SERVICES")
	further := Similarity(base, "UNITED FREIGHT LINES")
	unrelated := Similarity(base, "ACME STEEL")
	assert.Greater(t, closer, further)
	assert.Greater(t, further, unrelated)
}

func TestSimilarity_NearDuplicateAboveFloor(t *testing.T) {
	// A one-character typo in a realistic employer name stays well above the
	// default fuzzy floor.
	assert.Greater(t, Similarity("CONSOLIDATED FREIGHTWAYS", "CONSOLIDATED FREIGHTWAY"), 0.70)
}

func TestSimilarity_DistinctNamesBelowFloor(t *testing.T) {
	assert.Less(t, Similarity("ACME STEEL", "RIVERSIDE BAKERY"), 0.55)
}

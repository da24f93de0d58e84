// Package merge consolidates clustered duplicate employers into a single
// canonical survivor, migrating every downstream reference.
package merge

import (
	"sort"

	"github.com/sells-group/employer-unify/internal/model"
)

// SelectKeeper picks the surviving member of a cluster and returns the rest
// as losers. The order is fixed: largest reported size, then most downstream
// relations, then alphabetically-first display name, then lowest ID. The
// final ID tie-break makes the order total, which is what makes merges
// pairwise-commutative within a batch.
func SelectKeeper(members []model.Employer) (model.Employer, []model.Employer) {
	ranked := make([]model.Employer, len(members))
	copy(ranked, members)

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.ReportedSize != b.ReportedSize {
			return a.ReportedSize > b.ReportedSize
		}
		if a.RelationCount != b.RelationCount {
			return a.RelationCount > b.RelationCount
		}
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.ID < b.ID
	})

	return ranked[0], ranked[1:]
}

package scoring

import "sort"

// Rank orders candidates by final score, highest first, and keeps the top
// topN. Candidates with equal scores keep their input order. topN must be
// positive.
func Rank(scored []Scored, topN int) []Scored {
	ranked := make([]Scored, len(scored))
	copy(ranked, scored)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Breakdown.Final > ranked[j].Breakdown.Final
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

package filtering

import "github.com/spigell/applicant-ranker/internal/scoring"

// Candidates is the working set passed between filters. Order is the
// candidate lookup order and is preserved by every step.
type Candidates struct {
	Items []scoring.CandidateProfile
}

func NewCandidates(items []scoring.CandidateProfile) *Candidates {
	return &Candidates{Items: items}
}

func (c *Candidates) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Exclude removes candidates matching drop and returns their ids.
func (c *Candidates) Exclude(drop func(scoring.CandidateProfile) bool) []string {
	var excluded []string
	kept := make([]scoring.CandidateProfile, 0, len(c.Items))
	for _, item := range c.Items {
		if drop(item) {
			excluded = append(excluded, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return excluded
}

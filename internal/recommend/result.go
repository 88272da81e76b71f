package recommend

import (
	"github.com/spigell/applicant-ranker/internal/scoring"
)

const unknownApplicant = "N/A"

// Recommendation is one ranked application. Sub-scores are rounded to two
// decimals and the final score to four.
type Recommendation struct {
	ApplicationID    string   `json:"application_id"`
	ApplicantName    string   `json:"applicantName"`
	ApplicantEmail   string   `json:"applicantEmail"`
	Experience       string   `json:"experience"`
	Education        string   `json:"education"`
	ResumeURL        string   `json:"resume_url"`
	SkillScore       float64  `json:"skill_score"`
	DescriptionScore float64  `json:"description_score"`
	ExperienceScore  float64  `json:"exp_score"`
	EducationScore   float64  `json:"edu_score"`
	TestScore        *float64 `json:"test_score,omitempty"`
	FinalScore       float64  `json:"final_score"`
}

func newRecommendation(s scoring.Scored) Recommendation {
	name := s.Candidate.Name
	if name == "" {
		name = unknownApplicant
	}

	r := Recommendation{
		ApplicationID:    s.Candidate.ID,
		ApplicantName:    name,
		ApplicantEmail:   s.Candidate.Email,
		Experience:       s.Candidate.ExperienceText,
		Education:        s.Candidate.EducationText,
		ResumeURL:        s.Candidate.ResumeURL,
		SkillScore:       scoring.Round(s.Breakdown.CombinedSkill, 2),
		DescriptionScore: scoring.Round(s.Breakdown.Description, 2),
		ExperienceScore:  scoring.Round(s.Breakdown.Experience, 2),
		EducationScore:   scoring.Round(s.Breakdown.Education, 2),
		FinalScore:       scoring.Round(s.Breakdown.Final, 4),
	}
	if s.Breakdown.TestScore != nil {
		test := scoring.Round(*s.Breakdown.TestScore, 2)
		r.TestScore = &test
	}
	return r
}

func newRecommendations(ranked []scoring.Scored) []Recommendation {
	out := make([]Recommendation, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, newRecommendation(s))
	}
	return out
}

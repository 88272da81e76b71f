// Package scoring rates how well applicants fit a job posting and orders
// them by that fit.
package scoring

// ExperienceLevel is an ordinal seniority level.
type ExperienceLevel int

const (
	ExperienceNone ExperienceLevel = iota
	ExperienceJunior
	ExperienceMid
	ExperienceSenior
)

func (l ExperienceLevel) String() string {
	switch l {
	case ExperienceJunior:
		return "junior"
	case ExperienceMid:
		return "mid"
	case ExperienceSenior:
		return "senior"
	default:
		return "none"
	}
}

// EducationLevel is an ordinal level of formal education.
type EducationLevel int

const (
	EducationBelowSecondary EducationLevel = iota
	EducationSecondary
	EducationBachelor
	EducationMaster
	EducationDoctorate
)

func (l EducationLevel) String() string {
	switch l {
	case EducationSecondary:
		return "secondary"
	case EducationBachelor:
		return "bachelor"
	case EducationMaster:
		return "master"
	case EducationDoctorate:
		return "doctorate"
	default:
		return "below-secondary"
	}
}

// JobPosting is the job applicants are scored against. It is not modified
// during a scoring run.
type JobPosting struct {
	ID                 string
	Title              string
	Skills             []string
	Description        string
	Eligibility        string
	RequiredExperience ExperienceLevel
	RequiredEducation  EducationLevel
	Language           string
}

// CandidateProfile is one application to a job.
type CandidateProfile struct {
	ID             string
	Name           string
	Email          string
	ResumeURL      string
	ResumeText     string
	ExperienceText string
	EducationText  string
	// TestScore is the raw assessment result in [0, 100], nil when the
	// applicant took no test.
	TestScore *float64
	Language  string
}

// ScoreBreakdown holds every sub-score of a candidate. All values are in
// [0, 1].
type ScoreBreakdown struct {
	Skill         float64
	Description   float64
	CombinedSkill float64
	Experience    float64
	Education     float64
	// TestScore is the normalized test score, nil when absent.
	TestScore *float64
	Final     float64

	// Set by semantic experience and education scoring when the
	// similarity reaches the configured threshold.
	ExperienceMeetsBar bool
	EducationMeetsBar  bool
}

// Scored pairs a candidate with its breakdown.
type Scored struct {
	Candidate CandidateProfile
	Breakdown ScoreBreakdown
}

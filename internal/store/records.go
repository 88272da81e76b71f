package store

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spigell/applicant-ranker/internal/scoring"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const statusActive = "active"

var validate = validator.New(validator.WithRequiredStructEnabled())

// JobRecord is a job posting as stored.
type JobRecord struct {
	ID              string `mapstructure:"_id" validate:"required"`
	Title           string `mapstructure:"jobTitle" validate:"max=500"`
	Description     string `mapstructure:"jobDescription"`
	ExperienceLevel string `mapstructure:"experienceLevel" validate:"max=100"`
	EducationLevel  string `mapstructure:"educationLevel" validate:"max=100"`
	// Skills is either a comma separated string or a list of strings.
	Skills      any    `mapstructure:"skills"`
	Eligibility string `mapstructure:"eligibility"`
	Status      string `mapstructure:"status" validate:"omitempty,max=32"`
	JobActive   *bool  `mapstructure:"jobActive"`
	Language    string `mapstructure:"language" validate:"omitempty,max=16"`
}

// ApplicationRecord is one application as stored.
type ApplicationRecord struct {
	ID             string `mapstructure:"_id" validate:"required"`
	JobID          string `mapstructure:"jobId" validate:"required"`
	ApplicantName  string `mapstructure:"applicantName" validate:"max=300"`
	ApplicantEmail string `mapstructure:"applicantEmail"`
	ResumeURL      string `mapstructure:"resume"`
	ResumeText     string `mapstructure:"resumeText"`
	Experience     string `mapstructure:"experience"`
	Education      string `mapstructure:"education"`
	// TestScore is a number or a numeric string in [0, 100].
	TestScore any    `mapstructure:"testScore"`
	Language  string `mapstructure:"language" validate:"omitempty,max=16"`
}

// IsActive reports whether the posting is open for applications.
func (j *JobRecord) IsActive() bool {
	status := strings.ToLower(strings.TrimSpace(j.Status))
	if status != "" && status != statusActive {
		return false
	}
	return j.JobActive == nil || *j.JobActive
}

// ClearMalformedContacts empties an email or resume link that is present
// but malformed and returns the names of the cleared fields. The
// application itself stays usable.
func (a *ApplicationRecord) ClearMalformedContacts() []string {
	var cleared []string

	a.ApplicantEmail = strings.TrimSpace(a.ApplicantEmail)
	if a.ApplicantEmail != "" && validate.Var(a.ApplicantEmail, "email") != nil {
		a.ApplicantEmail = ""
		cleared = append(cleared, "applicantEmail")
	}

	a.ResumeURL = strings.TrimSpace(a.ResumeURL)
	if a.ResumeURL != "" && validate.Var(a.ResumeURL, "url") != nil {
		a.ResumeURL = ""
		cleared = append(cleared, "resume")
	}

	return cleared
}

// ToPosting converts the record into the scoring representation. An
// explicit education level wins over the one implied by the eligibility
// statement.
func (j *JobRecord) ToPosting() scoring.JobPosting {
	education := scoring.RequiredEducationFromText(j.Eligibility)
	if strings.TrimSpace(j.EducationLevel) != "" {
		education = scoring.ParseEducationLevel(j.EducationLevel)
	}

	return scoring.JobPosting{
		ID:                 j.ID,
		Title:              strings.TrimSpace(j.Title),
		Skills:             ParseSkills(j.Skills),
		Description:        strings.TrimSpace(j.Description),
		Eligibility:        strings.TrimSpace(j.Eligibility),
		RequiredExperience: scoring.ParseExperienceLevel(j.ExperienceLevel),
		RequiredEducation:  education,
		Language:           strings.TrimSpace(j.Language),
	}
}

// ToCandidate converts the record into the scoring representation. Resume
// text is filled in later from ResumeText or the document at ResumeURL.
func (a *ApplicationRecord) ToCandidate() scoring.CandidateProfile {
	return scoring.CandidateProfile{
		ID:             a.ID,
		Name:           strings.TrimSpace(a.ApplicantName),
		Email:          strings.TrimSpace(a.ApplicantEmail),
		ResumeURL:      strings.TrimSpace(a.ResumeURL),
		ResumeText:     strings.TrimSpace(a.ResumeText),
		ExperienceText: strings.TrimSpace(a.Experience),
		EducationText:  strings.TrimSpace(a.Education),
		TestScore:      ParseTestScore(a.TestScore),
		Language:       strings.TrimSpace(a.Language),
	}
}

// DecodeJob maps an untyped document onto a validated JobRecord.
func DecodeJob(doc map[string]any) (*JobRecord, error) {
	var record JobRecord
	if err := decode(doc, &record); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	if err := validate.Struct(&record); err != nil {
		return nil, fmt.Errorf("invalid job %q: %w", record.ID, err)
	}
	return &record, nil
}

// DecodeApplication maps an untyped document onto a validated ApplicationRecord.
func DecodeApplication(doc map[string]any) (*ApplicationRecord, error) {
	var record ApplicationRecord
	if err := decode(doc, &record); err != nil {
		return nil, fmt.Errorf("decode application: %w", err)
	}
	if err := validate.Struct(&record); err != nil {
		return nil, fmt.Errorf("invalid application %q: %w", record.ID, err)
	}
	return &record, nil
}

func decode(doc map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       objectIDToString,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(doc)
}

var objectIDType = reflect.TypeOf(primitive.ObjectID{})

// objectIDToString renders database-native ids as hex strings.
func objectIDToString(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from != objectIDType || to.Kind() != reflect.String {
		return data, nil
	}
	return data.(primitive.ObjectID).Hex(), nil
}

// ParseSkills accepts "python, sql" as well as ["python", "sql"] and drops
// blank entries.
func ParseSkills(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	case primitive.A:
		return ParseSkills([]any(v))
	default:
		return nil
	}

	skills := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			skills = append(skills, part)
		}
	}
	return skills
}

// ParseTestScore reads a stored test score. Missing, blank and unparsable
// values mean the applicant has no score.
func ParseTestScore(raw any) *float64 {
	var score float64
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		score = v
	case float32:
		score = float64(v)
	case int:
		score = float64(v)
	case int32:
		score = float64(v)
	case int64:
		score = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
		if err != nil {
			return nil
		}
		score = parsed
	default:
		return nil
	}
	return &score
}

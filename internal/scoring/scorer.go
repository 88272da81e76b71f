package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/applicant-ranker/internal/embedding"
	"github.com/spigell/applicant-ranker/internal/utils"
	"go.uber.org/zap"
)

// ErrBlankResume is returned for candidates without usable resume text.
var ErrBlankResume = errors.New("resume text is blank")

// Scorer computes sub-scores and the final score of candidates.
type Scorer struct {
	encoder embedding.Encoder
	policy  Policy
	logger  *zap.Logger
}

func NewScorer(encoder embedding.Encoder, policy Policy, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{encoder: encoder, policy: policy, logger: logger}
}

func (s *Scorer) Policy() Policy {
	return s.policy
}

// PreparedJob carries the job vectors shared by every candidate of a run.
type PreparedJob struct {
	Job JobPosting

	skillVectors [][]float32
	description  []float32
	eligibility  []float32
}

// Prepare encodes the job texts once per run. Blank skills are dropped.
func (s *Scorer) Prepare(ctx context.Context, job JobPosting) (*PreparedJob, error) {
	job.Skills = cleanSkills(job.Skills)

	texts := append([]string(nil), job.Skills...)
	descriptionAt, eligibilityAt := -1, -1
	if !utils.IsBlank(job.Description) {
		descriptionAt = len(texts)
		texts = append(texts, job.Description)
	}
	if !utils.IsBlank(job.Eligibility) {
		eligibilityAt = len(texts)
		texts = append(texts, job.Eligibility)
	}

	prepared := &PreparedJob{Job: job}
	if len(texts) == 0 {
		return prepared, nil
	}

	vectors, err := s.encoder.Encode(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("encoding job %s: %w", job.ID, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("encoding job %s: got %d vectors for %d texts", job.ID, len(vectors), len(texts))
	}

	prepared.skillVectors = vectors[:len(job.Skills)]
	if descriptionAt >= 0 {
		prepared.description = vectors[descriptionAt]
	}
	if eligibilityAt >= 0 {
		prepared.eligibility = vectors[eligibilityAt]
	}

	return prepared, nil
}

// Score computes the full breakdown of one candidate. Candidates with blank
// resume text are rejected with ErrBlankResume.
func (s *Scorer) Score(ctx context.Context, job *PreparedJob, c CandidateProfile) (ScoreBreakdown, error) {
	if utils.IsBlank(c.ResumeText) {
		return ScoreBreakdown{}, ErrBlankResume
	}

	texts := []string{c.ResumeText}
	experienceAt, educationAt := -1, -1
	if s.policy.ExperienceSource == SourceSemantic && !utils.IsBlank(c.ExperienceText) {
		experienceAt = len(texts)
		texts = append(texts, c.ExperienceText)
	}
	if s.policy.EducationSource == SourceSemantic && !utils.IsBlank(c.EducationText) {
		educationAt = len(texts)
		texts = append(texts, c.EducationText)
	}

	vectors, err := s.encoder.Encode(ctx, texts)
	if err != nil {
		return ScoreBreakdown{}, fmt.Errorf("encoding candidate %s: %w", c.ID, err)
	}
	if len(vectors) != len(texts) {
		return ScoreBreakdown{}, fmt.Errorf("encoding candidate %s: got %d vectors for %d texts", c.ID, len(vectors), len(texts))
	}
	resume := vectors[0]

	var b ScoreBreakdown
	b.Skill = meanSimilarity(job.skillVectors, resume)
	b.Description = similarity(job.description, resume)
	b.CombinedSkill = s.CombinedSkillScore(b.Skill, b.Description)

	switch s.policy.ExperienceSource {
	case SourceSemantic:
		b.Experience, b.ExperienceMeetsBar = s.semantic(job.eligibility, vectorAt(vectors, experienceAt))
	default:
		b.Experience = RuleExperienceScore(job.Job.RequiredExperience, c)
	}

	switch s.policy.EducationSource {
	case SourceSemantic:
		b.Education, b.EducationMeetsBar = s.semantic(job.eligibility, vectorAt(vectors, educationAt))
	default:
		b.Education = RuleEducationScore(job.Job.RequiredEducation, c)
	}

	if c.TestScore != nil {
		normalized := NormalizeTestScore(*c.TestScore)
		b.TestScore = &normalized
	}

	b.Final = Aggregate(b, s.policy)

	s.logger.Debug("candidate scored",
		zap.String("candidate_id", c.ID),
		zap.Float64("skill", b.Skill),
		zap.Float64("description", b.Description),
		zap.Float64("experience", b.Experience),
		zap.Float64("education", b.Education),
		zap.Float64("final", b.Final),
	)

	return b, nil
}

// SkillMatchScore is the mean similarity between each required skill and
// the resume. It is 0 when there are no skills or the resume is blank.
func (s *Scorer) SkillMatchScore(ctx context.Context, skills []string, resume string) (float64, error) {
	skills = cleanSkills(skills)
	if len(skills) == 0 || utils.IsBlank(resume) {
		return 0, nil
	}

	vectors, err := s.encoder.Encode(ctx, append([]string{resume}, skills...))
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(skills)+1 {
		return 0, fmt.Errorf("got %d vectors for %d texts", len(vectors), len(skills)+1)
	}

	return meanSimilarity(vectors[1:], vectors[0]), nil
}

// DescriptionMatchScore is the similarity between the job description and
// the resume, 0 when either is blank.
func (s *Scorer) DescriptionMatchScore(ctx context.Context, description, resume string) (float64, error) {
	return s.textSimilarity(ctx, description, resume)
}

// CombinedSkillScore blends the skill and description scores.
func (s *Scorer) CombinedSkillScore(skill, description float64) float64 {
	blend := s.policy.SkillBlend
	return clamp01(blend.Skill*skill + blend.Description*description)
}

// SemanticScore compares an eligibility statement with candidate text and
// reports whether the similarity reaches the threshold.
func (s *Scorer) SemanticScore(ctx context.Context, eligibility, text string) (float64, bool, error) {
	score, err := s.textSimilarity(ctx, eligibility, text)
	if err != nil {
		return 0, false, err
	}
	return score, score >= s.policy.SemanticThreshold, nil
}

// RuleExperienceScore compares the years of experience the candidate states
// with the required level. The experience text is used when present,
// otherwise the resume.
func RuleExperienceScore(required ExperienceLevel, c CandidateProfile) float64 {
	text := firstNonBlank(c.ExperienceText, c.ResumeText)
	if text == "" {
		return 0
	}
	return LevelScore(ExperienceLevelFromYears(ParseYears(text)), required)
}

// RuleEducationScore compares the highest degree the candidate mentions with
// the required level.
func RuleEducationScore(required EducationLevel, c CandidateProfile) float64 {
	text := firstNonBlank(c.EducationText, c.ResumeText)
	if text == "" {
		return 0
	}
	return LevelScore(EducationLevelFromText(text), required)
}

func (s *Scorer) semantic(eligibility, text []float32) (float64, bool) {
	if eligibility == nil || text == nil {
		return 0, false
	}
	score := similarity(eligibility, text)
	return score, score >= s.policy.SemanticThreshold
}

func (s *Scorer) textSimilarity(ctx context.Context, a, b string) (float64, error) {
	if utils.IsBlank(a) || utils.IsBlank(b) {
		return 0, nil
	}

	vectors, err := s.encoder.Encode(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("got %d vectors for 2 texts", len(vectors))
	}

	return similarity(vectors[0], vectors[1]), nil
}

func similarity(a, b []float32) float64 {
	if a == nil || b == nil {
		return 0
	}
	return embedding.Clamp01(embedding.CosineSimilarity(a, b))
}

// meanSimilarity averages clamped similarities so one opposing skill cannot
// pull the score below zero.
func meanSimilarity(vectors [][]float32, target []float32) float64 {
	if len(vectors) == 0 || target == nil {
		return 0
	}
	var total float64
	for _, v := range vectors {
		total += similarity(v, target)
	}
	return total / float64(len(vectors))
}

func vectorAt(vectors [][]float32, i int) []float32 {
	if i < 0 || i >= len(vectors) {
		return nil
	}
	return vectors[i]
}

func cleanSkills(skills []string) []string {
	cleaned := make([]string, 0, len(skills))
	for _, skill := range skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			cleaned = append(cleaned, skill)
		}
	}
	return cleaned
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if !utils.IsBlank(v) {
			return v
		}
	}
	return ""
}

package scoring

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spigell/applicant-ranker/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tableEncoder map[string][]float32

func (t tableEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := t[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = v
	}
	return out, nil
}

func (t tableEncoder) Model() string { return "table" }

func ptr(v float64) *float64 { return &v }

func TestCombinedSkillScoreWorkedExample(t *testing.T) {
	s := NewScorer(nil, DefaultPolicy(), nil)

	assert.InDelta(t, 0.78, s.CombinedSkillScore(0.90, 0.50), 1e-9)
}

func TestCombinedSkillScoreIsMonotonic(t *testing.T) {
	s := NewScorer(nil, DefaultPolicy(), nil)

	for _, description := range []float64{0, 0.3, 1} {
		prev := -1.0
		for skill := 0.0; skill <= 1.0; skill += 0.05 {
			got := s.CombinedSkillScore(skill, description)
			assert.GreaterOrEqual(t, got, prev)
			prev = got
		}
	}
}

func TestParseYears(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
	}{
		{text: "5 years of backend development", want: 5},
		{text: "over 10+ years in retail", want: 10},
		{text: "3yrs Go, 7 years Java", want: 3},
		{text: "1 year as intern", want: 1},
		{text: "worked since 2015", want: 0},
		{text: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseYears(tt.text))
		})
	}
}

func TestExperienceLevels(t *testing.T) {
	assert.Equal(t, ExperienceNone, ExperienceLevelFromYears(0))
	assert.Equal(t, ExperienceJunior, ExperienceLevelFromYears(2))
	assert.Equal(t, ExperienceMid, ExperienceLevelFromYears(5))
	assert.Equal(t, ExperienceSenior, ExperienceLevelFromYears(6))

	assert.Equal(t, ExperienceSenior, ParseExperienceLevel("Senior Engineer"))
	assert.Equal(t, ExperienceMid, ParseExperienceLevel("mid-level"))
	assert.Equal(t, ExperienceJunior, ParseExperienceLevel("Entry level"))
	assert.Equal(t, ExperienceNone, ParseExperienceLevel(""))
}

func TestEducationLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text    string
		highest EducationLevel
		lowest  EducationLevel
	}{
		{text: "PhD in Physics, MSc in Mathematics", highest: EducationDoctorate, lowest: EducationMaster},
		{text: "Bachelor's or Master's degree in CS", highest: EducationMaster, lowest: EducationBachelor},
		{text: "High school diploma", highest: EducationSecondary, lowest: EducationSecondary},
		{text: "self taught", highest: EducationBelowSecondary, lowest: EducationBelowSecondary},
		{text: "Cashier at a store in Mumbai", highest: EducationBelowSecondary, lowest: EducationBelowSecondary},
		{text: "Worked on obscure legacy systems", highest: EducationBelowSecondary, lowest: EducationBelowSecondary},
		{text: "B.Tech (CSE), MBA", highest: EducationMaster, lowest: EducationBachelor},
		{text: "Ph.D. in Chemistry", highest: EducationDoctorate, lowest: EducationDoctorate},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.highest, EducationLevelFromText(tt.text))
			assert.Equal(t, tt.lowest, RequiredEducationFromText(tt.text))
		})
	}
}

func TestRuleScores(t *testing.T) {
	assert.Equal(t, 1.0, RuleExperienceScore(ExperienceMid, CandidateProfile{ExperienceText: "5 years"}))
	assert.Equal(t, 0.5, RuleExperienceScore(ExperienceSenior, CandidateProfile{ResumeText: "eager to learn"}))
	assert.Equal(t, 1.0, RuleExperienceScore(ExperienceJunior, CandidateProfile{ExperienceText: " ", ResumeText: "2 yrs support"}))
	assert.Equal(t, 0.0, RuleExperienceScore(ExperienceJunior, CandidateProfile{}))

	assert.Equal(t, 1.0, RuleEducationScore(EducationBachelor, CandidateProfile{EducationText: "MSc Computer Science"}))
	assert.Equal(t, 0.5, RuleEducationScore(EducationMaster, CandidateProfile{EducationText: "Bachelor of Arts"}))
	assert.Equal(t, 0.0, RuleEducationScore(EducationMaster, CandidateProfile{}))
	assert.Equal(t, 0.5, RuleEducationScore(EducationBachelor, CandidateProfile{ResumeText: "Cashier at a store in Mumbai"}))
	assert.Equal(t, 0.5, RuleEducationScore(EducationBachelor, CandidateProfile{EducationText: "Worked on obscure legacy systems"}))
}

func TestDefaultPolicyWeightsSumToOne(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	assert.InDelta(t, 1.0, p.Weights.WithTest.Sum(), 1e-12)
	assert.InDelta(t, 1.0, p.Weights.WithoutTest.Sum(), 1e-12)
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{name: "with-test sum", mutate: func(p *Policy) { p.Weights.WithTest.Test = 0.5 }},
		{name: "without-test uses test weight", mutate: func(p *Policy) {
			p.Weights.WithoutTest = Weights{Test: 0.1, Skill: 0.35, Experience: 0.275, Education: 0.275}
		}},
		{name: "negative weight", mutate: func(p *Policy) {
			p.Weights.WithoutTest = Weights{Skill: 1.2, Experience: -0.1, Education: -0.1}
		}},
		{name: "blend", mutate: func(p *Policy) { p.SkillBlend.Description = 0.5 }},
		{name: "source", mutate: func(p *Policy) { p.EducationSource = "llm" }},
		{name: "threshold", mutate: func(p *Policy) { p.SemanticThreshold = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := DefaultPolicy()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestAggregate(t *testing.T) {
	p := DefaultPolicy()

	withTest := ScoreBreakdown{CombinedSkill: 0.8, Experience: 1, Education: 0.5, TestScore: ptr(NormalizeTestScore(60))}
	assert.InDelta(t, 0.35*0.6+0.35*0.8+0.15*1+0.15*0.5, Aggregate(withTest, p), 1e-12)

	withoutTest := ScoreBreakdown{CombinedSkill: 0.8, Experience: 1, Education: 0.5}
	assert.InDelta(t, 0.45*0.8+0.275*1+0.275*0.5, Aggregate(withoutTest, p), 1e-12)

	perfect := ScoreBreakdown{CombinedSkill: 1, Experience: 1, Education: 1, TestScore: ptr(1)}
	assert.InDelta(t, 1.0, Aggregate(perfect, p), 1e-12)
}

func TestNormalizeTestScore(t *testing.T) {
	assert.Equal(t, 0.85, NormalizeTestScore(85))
	assert.Equal(t, 1.0, NormalizeTestScore(140))
	assert.Equal(t, 0.0, NormalizeTestScore(-5))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.78, Round(0.7812, 2))
	assert.Equal(t, 0.7813, Round(0.78125, 4))
}

func rankInput(finals ...float64) []Scored {
	scored := make([]Scored, len(finals))
	for i, f := range finals {
		scored[i] = Scored{
			Candidate: CandidateProfile{ID: fmt.Sprintf("c%d", i)},
			Breakdown: ScoreBreakdown{Final: f},
		}
	}
	return scored
}

func ids(scored []Scored) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Candidate.ID
	}
	return out
}

func TestRankTruncates(t *testing.T) {
	ranked := Rank(rankInput(0.2, 0.9, 0.4, 0.7, 0.1, 0.8, 0.3), 3)

	assert.Equal(t, []string{"c1", "c5", "c3"}, ids(ranked))
}

func TestRankIsStableOnTies(t *testing.T) {
	input := rankInput(0.5, 0.9, 0.5, 0.5)
	ranked := Rank(input, 10)

	assert.Equal(t, []string{"c1", "c0", "c2", "c3"}, ids(ranked))
	assert.Equal(t, "c0", input[0].Candidate.ID, "input must not be reordered")
}

func newTableScorer(policy Policy) *Scorer {
	enc := tableEncoder{
		"resume":      {1, 0},
		"go":          {1, 0},
		"sql":         {0, 1},
		"cobol":       {-1, 0},
		"description": {0.6, 0.8},
		"eligibility": {0.8, 0.6},
		"experience":  {0.8, 0.6},
		"education":   {0, 1},
	}
	return NewScorer(enc, policy, nil)
}

func TestScoreBreakdown(t *testing.T) {
	s := newTableScorer(DefaultPolicy())
	ctx := context.Background()

	job, err := s.Prepare(ctx, JobPosting{
		ID:                 "job",
		Skills:             []string{"go", " ", "sql", "cobol"},
		Description:        "description",
		RequiredExperience: ExperienceMid,
		RequiredEducation:  EducationBachelor,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sql", "cobol"}, job.Job.Skills)

	b, err := s.Score(ctx, job, CandidateProfile{
		ID:             "c1",
		ResumeText:     "resume",
		ExperienceText: "4 years",
		EducationText:  "Bachelor",
		TestScore:      ptr(80),
	})
	require.NoError(t, err)

	// go=1, sql=0, cobol=-1 clamped to 0
	assert.InDelta(t, 1.0/3, b.Skill, 1e-6)
	assert.InDelta(t, 0.6, b.Description, 1e-6)
	assert.InDelta(t, 0.7*(1.0/3)+0.3*0.6, b.CombinedSkill, 1e-6)
	assert.Equal(t, 1.0, b.Experience)
	assert.Equal(t, 1.0, b.Education)
	require.NotNil(t, b.TestScore)
	assert.InDelta(t, 0.8, *b.TestScore, 1e-12)
	assert.InDelta(t, 0.35*0.8+0.35*b.CombinedSkill+0.15+0.15, b.Final, 1e-6)
}

func TestScoreSemanticSources(t *testing.T) {
	p := DefaultPolicy()
	p.ExperienceSource = SourceSemantic
	p.EducationSource = SourceSemantic
	s := newTableScorer(p)
	ctx := context.Background()

	job, err := s.Prepare(ctx, JobPosting{ID: "job", Eligibility: "eligibility"})
	require.NoError(t, err)

	b, err := s.Score(ctx, job, CandidateProfile{ResumeText: "resume", ExperienceText: "experience", EducationText: "education"})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, b.Experience, 1e-6)
	assert.True(t, b.ExperienceMeetsBar)
	assert.InDelta(t, 0.6, b.Education, 1e-6)
	assert.False(t, b.EducationMeetsBar)
	assert.Zero(t, b.Skill, "no skills means no skill score")

	blank, err := s.Score(ctx, job, CandidateProfile{ResumeText: "resume"})
	require.NoError(t, err)
	assert.Zero(t, blank.Experience)
	assert.Zero(t, blank.Education)
}

func TestScoreRejectsBlankResume(t *testing.T) {
	s := newTableScorer(DefaultPolicy())
	job, err := s.Prepare(context.Background(), JobPosting{ID: "job"})
	require.NoError(t, err)

	_, err = s.Score(context.Background(), job, CandidateProfile{ResumeText: " \n"})
	assert.True(t, errors.Is(err, ErrBlankResume))
}

func TestTextScores(t *testing.T) {
	s := newTableScorer(DefaultPolicy())
	ctx := context.Background()

	skill, err := s.SkillMatchScore(ctx, []string{"go", "sql"}, "resume")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, skill, 1e-6)

	skill, err = s.SkillMatchScore(ctx, nil, "resume")
	require.NoError(t, err)
	assert.Zero(t, skill)

	skill, err = s.SkillMatchScore(ctx, []string{"go"}, "")
	require.NoError(t, err)
	assert.Zero(t, skill)

	description, err := s.DescriptionMatchScore(ctx, "description", "resume")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, description, 1e-6)

	score, meets, err := s.SemanticScore(ctx, "eligibility", "experience")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-6)
	assert.True(t, meets)
}

func TestScoresStayInBoundsAndAreDeterministic(t *testing.T) {
	s := NewScorer(embedding.NewHashEncoder(64), DefaultPolicy(), nil)
	ctx := context.Background()

	job, err := s.Prepare(ctx, JobPosting{
		ID:                 "job",
		Skills:             []string{"python", "sql", "airflow"},
		Description:        "Build data pipelines in python and sql",
		Eligibility:        "Bachelor degree and 3 years experience",
		RequiredExperience: ExperienceMid,
		RequiredEducation:  EducationBachelor,
	})
	require.NoError(t, err)

	candidates := []CandidateProfile{
		{ID: "a", ResumeText: "python sql airflow pipelines 6 years", EducationText: "MSc", TestScore: ptr(95)},
		{ID: "b", ResumeText: "retail cashier"},
		{ID: "c", ResumeText: "sql reporting 2 years", TestScore: ptr(150)},
	}

	for _, c := range candidates {
		first, err := s.Score(ctx, job, c)
		require.NoError(t, err)
		second, err := s.Score(ctx, job, c)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		for name, v := range map[string]float64{
			"skill": first.Skill, "description": first.Description, "combined": first.CombinedSkill,
			"experience": first.Experience, "education": first.Education, "final": first.Final,
		} {
			assert.GreaterOrEqual(t, v, 0.0, name)
			assert.LessOrEqual(t, v, 1.0, name)
		}
	}
}

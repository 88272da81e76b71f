package scoring

import (
	"errors"
	"fmt"
	"math"
)

// Source selects how experience and education are scored.
type Source string

const (
	// SourceRule parses years and degree keywords and compares ordinal levels.
	SourceRule Source = "rule"
	// SourceSemantic compares the eligibility statement with the candidate
	// text by embedding similarity.
	SourceSemantic Source = "semantic"
)

const weightEpsilon = 1e-9

// Weights combines sub-scores into the final score.
type Weights struct {
	Test       float64 `mapstructure:"test" json:"test"`
	Skill      float64 `mapstructure:"skill" json:"skill"`
	Experience float64 `mapstructure:"experience" json:"experience"`
	Education  float64 `mapstructure:"education" json:"education"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Test + w.Skill + w.Experience + w.Education
}

func (w Weights) validate(name string, allowTest bool) error {
	for field, v := range map[string]float64{
		"test": w.Test, "skill": w.Skill, "experience": w.Experience, "education": w.Education,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%s weights: %s must not be negative", name, field)
		}
	}
	if !allowTest && w.Test != 0 {
		return fmt.Errorf("%s weights: test weight must be 0", name)
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightEpsilon {
		return fmt.Errorf("%s weights must sum to 1.0, got %v", name, sum)
	}
	return nil
}

// SkillBlend mixes per-skill similarity with description similarity.
type SkillBlend struct {
	Skill       float64 `mapstructure:"skill" json:"skill"`
	Description float64 `mapstructure:"description" json:"description"`
}

// WeightSet holds the weights used with and without a test score.
type WeightSet struct {
	WithTest    Weights `mapstructure:"with-test" json:"with_test"`
	WithoutTest Weights `mapstructure:"without-test" json:"without_test"`
}

// Policy is the complete, configurable scoring scheme.
type Policy struct {
	SkillBlend        SkillBlend `mapstructure:"skill-blend" json:"skill_blend"`
	ExperienceSource  Source     `mapstructure:"experience-source" json:"experience_source"`
	EducationSource   Source     `mapstructure:"education-source" json:"education_source"`
	SemanticThreshold float64    `mapstructure:"semantic-threshold" json:"semantic_threshold"`
	Weights           WeightSet  `mapstructure:"weights" json:"weights"`
}

// DefaultPolicy returns the standard scoring scheme.
func DefaultPolicy() Policy {
	return Policy{
		SkillBlend:        SkillBlend{Skill: 0.7, Description: 0.3},
		ExperienceSource:  SourceRule,
		EducationSource:   SourceRule,
		SemanticThreshold: 0.75,
		Weights: WeightSet{
			WithTest:    Weights{Test: 0.35, Skill: 0.35, Experience: 0.15, Education: 0.15},
			WithoutTest: Weights{Skill: 0.45, Experience: 0.275, Education: 0.275},
		},
	}
}

// Validate checks that every weighting sums to 1.0 and that sources are known.
func (p Policy) Validate() error {
	var errs []error

	if err := p.Weights.WithTest.validate("with-test", true); err != nil {
		errs = append(errs, err)
	}
	if err := p.Weights.WithoutTest.validate("without-test", false); err != nil {
		errs = append(errs, err)
	}

	blend := p.SkillBlend
	if blend.Skill < 0 || blend.Description < 0 || math.Abs(blend.Skill+blend.Description-1) > weightEpsilon {
		errs = append(errs, fmt.Errorf("skill blend must be non-negative and sum to 1.0, got %v+%v", blend.Skill, blend.Description))
	}

	for name, source := range map[string]Source{"experience": p.ExperienceSource, "education": p.EducationSource} {
		if source != SourceRule && source != SourceSemantic {
			errs = append(errs, fmt.Errorf("unknown %s source %q", name, source))
		}
	}

	if p.SemanticThreshold < 0 || p.SemanticThreshold > 1 {
		errs = append(errs, fmt.Errorf("semantic threshold must be in [0, 1], got %v", p.SemanticThreshold))
	}

	return errors.Join(errs...)
}

// WeightsFor returns the weights that apply to a candidate.
func (p Policy) WeightsFor(hasTest bool) Weights {
	if hasTest {
		return p.Weights.WithTest
	}
	return p.Weights.WithoutTest
}

package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/applicant-ranker/internal/language"
	"github.com/spigell/applicant-ranker/internal/logger"
	"github.com/spigell/applicant-ranker/internal/scoring"
	"github.com/spigell/applicant-ranker/internal/utils"
)

type resumeTextFilter struct {
	disabled    bool
	reason      string
	concurrency int
}

// NewResumeText creates a step that loads resume text from the resume link
// for candidates without stored text.
func NewResumeText() Filter {
	return &resumeTextFilter{concurrency: defaultConcurrency}
}

func (f *resumeTextFilter) Name() string { return "resume_text" }

func (f *resumeTextFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *resumeTextFilter) IsEnabled() bool { return !f.disabled }

func (f *resumeTextFilter) Validate(cfg *Config) error {
	f.concurrency = cfg.concurrency()
	return nil
}

func (f *resumeTextFilter) Apply(ctx context.Context, deps Deps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	if deps.Resumes == nil {
		deps.Logger.Info("resume source is not configured; skipping resume_text filter")
		return c, Step{Initial: initial, Left: initial}, nil
	}

	var g errgroup.Group
	g.SetLimit(f.concurrency)

	for i := range c.Items {
		candidate := &c.Items[i]
		if !utils.IsBlank(candidate.ResumeText) || utils.IsBlank(candidate.ResumeURL) {
			continue
		}

		g.Go(func() error {
			candidate.ResumeText = deps.Resumes.Text(ctx, candidate.ResumeURL)
			if candidate.ResumeText == "" {
				deps.Logger.Warn("no resume text for candidate",
					zap.String(logger.FieldCandidateID, candidate.ID),
				)
			}
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return c, Step{}, err
	}

	return c, Step{Initial: initial, Left: c.Len()}, nil
}

func (f *resumeTextFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"concurrency": strconv.Itoa(f.concurrency)},
	}
}

type languageFilter struct {
	disabled    bool
	reason      string
	concurrency int
}

// NewLanguage creates a step that brings candidate texts into the language
// the job is compared in.
func NewLanguage() Filter {
	return &languageFilter{concurrency: defaultConcurrency}
}

func (f *languageFilter) Name() string { return "language" }

func (f *languageFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *languageFilter) IsEnabled() bool { return !f.disabled }

func (f *languageFilter) Validate(cfg *Config) error {
	f.concurrency = cfg.concurrency()
	return nil
}

func (f *languageFilter) Apply(ctx context.Context, deps Deps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	if deps.Normalizer == nil {
		deps.Logger.Info("language normalizer is not configured; skipping language filter")
		return c, Step{Initial: initial, Left: initial}, nil
	}

	target := deps.Normalizer.CandidateTarget(deps.JobLanguage)

	var g errgroup.Group
	g.SetLimit(f.concurrency)

	for i := range c.Items {
		candidate := &c.Items[i]
		g.Go(func() error {
			normalizeCandidate(ctx, deps.Normalizer, target, candidate)
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return c, Step{}, err
	}

	return c, Step{Initial: initial, Left: c.Len()}, nil
}

func (f *languageFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"concurrency": strconv.Itoa(f.concurrency)},
	}
}

// normalizeCandidate translates the texts a candidate is scored on. Failed
// translations keep the original text.
func normalizeCandidate(ctx context.Context, n *language.Normalizer, target string, c *scoring.CandidateProfile) {
	resume := n.Translate(ctx, c.ResumeText, target)
	c.ResumeText = resume.Text
	if utils.IsBlank(c.Language) {
		c.Language = resume.Source
	}

	c.ExperienceText = n.Translate(ctx, c.ExperienceText, target).Text
	c.EducationText = n.Translate(ctx, c.EducationText, target).Text
}

type blankResumeFilter struct{}

// NewBlankResume creates a step that drops candidates without usable resume text.
func NewBlankResume() Filter {
	return &blankResumeFilter{}
}

func (f *blankResumeFilter) Name() string { return "blank_resume" }

func (f *blankResumeFilter) Disable(string) {}

func (f *blankResumeFilter) IsEnabled() bool { return true }

func (f *blankResumeFilter) Validate(*Config) error { return nil }

func (f *blankResumeFilter) Apply(_ context.Context, deps Deps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	excluded := c.Exclude(func(candidate scoring.CandidateProfile) bool {
		return utils.IsBlank(candidate.ResumeText)
	})
	if len(excluded) > 0 {
		deps.Logger.Info("excluding candidates without resume text",
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

func (f *blankResumeFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true}
}

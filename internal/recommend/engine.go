// Package recommend ranks the applications of a job posting.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/applicant-ranker/internal/embedding"
	"github.com/spigell/applicant-ranker/internal/filtering"
	"github.com/spigell/applicant-ranker/internal/language"
	"github.com/spigell/applicant-ranker/internal/lazy"
	"github.com/spigell/applicant-ranker/internal/logger"
	"github.com/spigell/applicant-ranker/internal/scoring"
	"github.com/spigell/applicant-ranker/internal/store"
	"github.com/spigell/applicant-ranker/internal/utils"
)

const defaultConcurrency = 8

// Config tunes scoring.
type Config struct {
	Policy      scoring.Policy
	Concurrency int
}

// Deps are the collaborators of the engine. Encoder is built on first use.
type Deps struct {
	Store      store.Store
	Encoder    *lazy.Value[embedding.Encoder]
	Normalizer *language.Normalizer
	Resumes    filtering.ResumeSource
}

// Engine scores every application of a job and returns the best ones.
type Engine struct {
	store       store.Store
	encoder     *lazy.Value[embedding.Encoder]
	normalizer  *language.Normalizer
	resumes     filtering.ResumeSource
	policy      scoring.Policy
	concurrency int
	logger      *zap.Logger
}

func New(cfg Config, deps Deps, log *zap.Logger) (*Engine, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("scoring policy: %w", err)
	}
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Encoder == nil {
		return nil, errors.New("encoder is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Normalizer == nil {
		deps.Normalizer = language.NewNormalizer(language.Config{}, nil, nil, log)
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Engine{
		store:       deps.Store,
		encoder:     deps.Encoder,
		normalizer:  deps.Normalizer,
		resumes:     deps.Resumes,
		policy:      cfg.Policy,
		concurrency: concurrency,
		logger:      log,
	}, nil
}

// Recommend returns at most topN applications of the job ordered by final
// score. A missing job, a job without applications and lookup failures all
// yield an empty result. Errors are always *Error.
func (e *Engine) Recommend(ctx context.Context, jobID string, topN int) ([]Recommendation, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, validationError(ErrMissingJobID)
	}
	if topN <= 0 {
		return nil, validationError(ErrInvalidTopN)
	}

	log := logger.ForRequest(e.logger, uuid.NewString(), jobID)

	record, err := e.store.FindJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("job not found")
		return []Recommendation{}, nil
	}
	if err != nil {
		log.Error("job lookup failed", zap.Error(err))
		return []Recommendation{}, nil
	}

	applications, err := e.store.FindApplications(ctx, jobID)
	if err != nil {
		log.Error("applications lookup failed", zap.Error(err))
		return []Recommendation{}, nil
	}
	if len(applications) == 0 {
		log.Info("job has no applications")
		return []Recommendation{}, nil
	}

	job, jobLanguage := e.normalizeJob(ctx, record.ToPosting())

	originals := make(map[string]scoring.CandidateProfile, len(applications))
	profiles := make([]scoring.CandidateProfile, 0, len(applications))
	for _, application := range applications {
		profile := application.ToCandidate()
		originals[profile.ID] = profile
		profiles = append(profiles, profile)
	}

	candidates, err := filtering.Run(ctx, e.filterConfig(), filtering.Deps{
		Logger:      log,
		Resumes:     e.resumes,
		Normalizer:  e.normalizer,
		JobLanguage: jobLanguage,
	}, e.Filters(), filtering.NewCandidates(profiles))
	if err != nil {
		return nil, internalError(fmt.Errorf("prepare candidates: %w", err))
	}
	if candidates.Len() == 0 {
		log.Info("no candidates with resume text")
		return []Recommendation{}, nil
	}

	encoder, err := e.encoder.Get(ctx)
	if err != nil {
		return nil, internalError(fmt.Errorf("embedding model: %w", err))
	}

	scorer := scoring.NewScorer(encoder, e.policy, log)
	prepared, err := scorer.Prepare(ctx, job)
	if err != nil {
		return nil, internalError(err)
	}

	scored := e.scoreAll(ctx, scorer, prepared, candidates.Items, log)
	if err := ctx.Err(); err != nil {
		return nil, internalError(err)
	}

	ranked := scoring.Rank(scored, topN)
	for i := range ranked {
		ranked[i].Candidate = originals[ranked[i].Candidate.ID]
	}

	fields := []zap.Field{
		zap.Int("applications", len(applications)),
		zap.Int("scored", len(scored)),
		zap.Int("returned", len(ranked)),
		zap.String("model", encoder.Model()),
	}
	if cached, ok := encoder.(*embedding.Cached); ok {
		hits, misses := cached.Stats()
		fields = append(fields, zap.Int64("cache_hits", hits), zap.Int64("cache_misses", misses))
	}
	log.Info("recommendations computed", fields...)

	return newRecommendations(ranked), nil
}

// Filters returns the candidate preparation steps for one request. The
// language step is disabled when no translator is configured.
func (e *Engine) Filters() []filtering.Filter {
	steps := filtering.Default()
	if !e.normalizer.CanTranslate() {
		filtering.DisableByName(steps, "language", "no translator configured")
	}
	cfg := e.filterConfig()
	for _, step := range steps {
		if step.IsEnabled() {
			_ = step.Validate(cfg)
		}
	}
	return steps
}

func (e *Engine) filterConfig() *filtering.Config {
	return &filtering.Config{Concurrency: e.concurrency}
}

// scoreAll scores candidates concurrently. Candidates that fail are logged
// and left out; the rest keep their lookup order.
func (e *Engine) scoreAll(ctx context.Context, scorer *scoring.Scorer, job *scoring.PreparedJob, candidates []scoring.CandidateProfile, log *zap.Logger) []scoring.Scored {
	results := make([]*scoring.Scored, len(candidates))

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, candidate := range candidates {
		g.Go(func() error {
			breakdown, err := scorer.Score(ctx, job, candidate)
			if err != nil {
				log.Warn("skipping candidate",
					zap.String(logger.FieldCandidateID, candidate.ID),
					zap.Error(err),
				)
				return nil
			}
			results[i] = &scoring.Scored{Candidate: candidate, Breakdown: breakdown}
			return nil
		})
	}
	_ = g.Wait()

	scored := make([]scoring.Scored, 0, len(results))
	for _, result := range results {
		if result != nil {
			scored = append(scored, *result)
		}
	}
	return scored
}

// normalizeJob detects the job language and translates the texts scoring
// compares against. Each skill is translated on its own.
func (e *Engine) normalizeJob(ctx context.Context, job scoring.JobPosting) (scoring.JobPosting, string) {
	jobLanguage := language.Normalize(job.Language)
	if jobLanguage == language.Unknown {
		jobLanguage = e.normalizer.DetectLanguage(joinNonBlank(job.Title, job.Description, job.Eligibility))
	}

	target := e.normalizer.JobTarget()
	if target == "" {
		return job, jobLanguage
	}

	skills := make([]string, 0, len(job.Skills))
	for _, skill := range job.Skills {
		skills = append(skills, e.normalizer.Translate(ctx, skill, target).Text)
	}
	job.Skills = skills
	job.Description = e.normalizer.Translate(ctx, job.Description, target).Text
	job.Eligibility = e.normalizer.Translate(ctx, job.Eligibility, target).Text

	return job, jobLanguage
}

func joinNonBlank(values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if !utils.IsBlank(v) {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	return strings.Join(parts, "\n")
}

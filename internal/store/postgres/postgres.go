// Package postgres implements the store on top of the jobs and applications
// tables. Columns are aliased to the document field names so records decode
// the same way as documents from MongoDB.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spigell/applicant-ranker/internal/lazy"
	"github.com/spigell/applicant-ranker/internal/store"
	"go.uber.org/zap"
)

const jobColumns = `id::text AS "_id",
	job_title AS "jobTitle",
	job_description AS "jobDescription",
	experience_level AS "experienceLevel",
	education_level AS "educationLevel",
	skills,
	eligibility,
	status,
	job_active AS "jobActive",
	language`

const applicationColumns = `id::text AS "_id",
	job_id::text AS "jobId",
	applicant_name AS "applicantName",
	applicant_email AS "applicantEmail",
	resume_url AS "resume",
	resume_text AS "resumeText",
	experience,
	education,
	test_score::text AS "testScore",
	language`

// Store opens the pool on first use.
type Store struct {
	pool       *lazy.Value[*pgxpool.Pool]
	activeOnly bool
	logger     *zap.Logger
}

func New(cfg store.Config, logger *zap.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("postgres uri is required")
	}

	uri := cfg.URI
	return &Store{
		pool: lazy.New(func(ctx context.Context) (*pgxpool.Pool, error) {
			pool, err := pgxpool.New(ctx, uri)
			if err != nil {
				return nil, fmt.Errorf("open postgres pool: %w", err)
			}
			if err := pool.Ping(ctx); err != nil {
				pool.Close()
				return nil, fmt.Errorf("ping postgres: %w", err)
			}
			logger.Info("connected to postgres")
			return pool, nil
		}),
		activeOnly: cfg.ActiveOnly,
		logger:     logger,
	}, nil
}

func (s *Store) FindJob(ctx context.Context, id string) (*store.JobRecord, error) {
	pool, err := s.pool.Get(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, jobQuery(s.activeOnly), id)
	if err != nil {
		return nil, fmt.Errorf("query job %q: %w", id, err)
	}
	doc, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read job %q: %w", id, err)
	}

	return store.DecodeJob(doc)
}

func (s *Store) FindApplications(ctx context.Context, jobID string) ([]store.ApplicationRecord, error) {
	pool, err := s.pool.Get(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, applicationsQuery, jobID)
	if err != nil {
		return nil, fmt.Errorf("query applications for job %q: %w", jobID, err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("read applications for job %q: %w", jobID, err)
	}

	return store.DecodeApplications(docs, s.logger), nil
}

func (s *Store) Close(context.Context) error {
	if pool, ok := s.pool.Peek(); ok {
		pool.Close()
	}
	return nil
}

func jobQuery(activeOnly bool) string {
	query := "SELECT " + jobColumns + " FROM jobs WHERE id::text = $1"
	if activeOnly {
		query += " AND status = 'active' AND job_active IS DISTINCT FROM false"
	}
	return query
}

const applicationsQuery = "SELECT " + applicationColumns + " FROM applications WHERE job_id::text = $1 ORDER BY id"

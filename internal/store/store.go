// Package store reads job postings and applications from the document store
// and converts them into scoring types.
package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a job posting does not exist or is filtered
// out by the active-only rule.
var ErrNotFound = errors.New("not found")

// Store looks up jobs and their applications.
type Store interface {
	FindJob(ctx context.Context, id string) (*JobRecord, error)
	FindApplications(ctx context.Context, jobID string) ([]ApplicationRecord, error)
	Close(ctx context.Context) error
}

// Config selects and configures the store backend.
type Config struct {
	Driver     string `mapstructure:"driver"`
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	ActiveOnly bool   `mapstructure:"active-only"`
}

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// DecodeApplications decodes raw application documents. Documents that fail
// to decode or validate are logged and skipped. Malformed contact fields are
// logged and cleared.
func DecodeApplications(docs []map[string]any, logger *zap.Logger) []ApplicationRecord {
	records := make([]ApplicationRecord, 0, len(docs))
	for _, doc := range docs {
		record, err := DecodeApplication(doc)
		if err != nil {
			logger.Warn("skipping malformed application", zap.Error(err))
			continue
		}
		if cleared := record.ClearMalformedContacts(); len(cleared) > 0 {
			logger.Warn("clearing malformed application fields",
				zap.String("application_id", record.ID),
				zap.Strings("fields", cleared),
			)
		}
		records = append(records, *record)
	}
	return records
}

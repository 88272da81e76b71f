// Package mongo implements the store on top of MongoDB collections "jobs"
// and "applications".
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/applicant-ranker/internal/lazy"
	"github.com/spigell/applicant-ranker/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	jobsCollection         = "jobs"
	applicationsCollection = "applications"
	connectTimeout         = 10 * time.Second
)

// Store connects on first use and reuses the client afterwards.
type Store struct {
	client     *lazy.Value[*mongo.Client]
	database   string
	activeOnly bool
	logger     *zap.Logger
}

// New prepares a store. No connection is made until the first lookup.
func New(cfg store.Config, logger *zap.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo database is required")
	}

	uri := cfg.URI
	return &Store{
		client: lazy.New(func(ctx context.Context) (*mongo.Client, error) {
			ctx, cancel := context.WithTimeout(ctx, connectTimeout)
			defer cancel()

			client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
			if err != nil {
				return nil, fmt.Errorf("connect to mongo: %w", err)
			}
			if err := client.Ping(ctx, nil); err != nil {
				_ = client.Disconnect(context.Background())
				return nil, fmt.Errorf("ping mongo: %w", err)
			}
			logger.Info("connected to mongo", zap.String("database", cfg.Database))
			return client, nil
		}),
		database:   cfg.Database,
		activeOnly: cfg.ActiveOnly,
		logger:     logger,
	}, nil
}

func (s *Store) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	client, err := s.client.Get(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(s.database).Collection(name), nil
}

// FindJob returns store.ErrNotFound when no matching posting exists.
func (s *Store) FindJob(ctx context.Context, id string) (*store.JobRecord, error) {
	coll, err := s.collection(ctx, jobsCollection)
	if err != nil {
		return nil, err
	}

	var doc bson.M
	err = coll.FindOne(ctx, jobFilter(id, s.activeOnly)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job %q: %w", id, err)
	}

	return store.DecodeJob(doc)
}

// FindApplications returns every well-formed application for the job.
func (s *Store) FindApplications(ctx context.Context, jobID string) ([]store.ApplicationRecord, error) {
	coll, err := s.collection(ctx, applicationsCollection)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, applicationsFilter(jobID))
	if err != nil {
		return nil, fmt.Errorf("find applications for job %q: %w", jobID, err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read applications for job %q: %w", jobID, err)
	}

	raw := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		raw = append(raw, doc)
	}
	return store.DecodeApplications(raw, s.logger), nil
}

// Close disconnects the client if it was ever created.
func (s *Store) Close(ctx context.Context) error {
	client, ok := s.client.Peek()
	if !ok {
		return nil
	}
	return client.Disconnect(ctx)
}

// idValue matches native object ids when the id looks like one and plain
// string ids otherwise.
func idValue(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func jobFilter(id string, activeOnly bool) bson.M {
	filter := bson.M{"_id": idValue(id)}
	if activeOnly {
		filter["status"] = "active"
		filter["jobActive"] = bson.M{"$ne": false}
	}
	return filter
}

// applicationsFilter accepts jobId stored either as an object id or as its
// hex string.
func applicationsFilter(jobID string) bson.M {
	oid, err := primitive.ObjectIDFromHex(jobID)
	if err != nil {
		return bson.M{"jobId": jobID}
	}
	return bson.M{"jobId": bson.M{"$in": bson.A{oid, jobID}}}
}

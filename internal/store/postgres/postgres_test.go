package postgres

import (
	"context"
	"testing"

	"github.com/spigell/applicant-ranker/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJobQuery(t *testing.T) {
	assert.NotContains(t, jobQuery(false), "status")
	assert.Contains(t, jobQuery(true), "status = 'active'")
	assert.Contains(t, jobQuery(true), "job_active IS DISTINCT FROM false")
	assert.Contains(t, jobQuery(false), `AS "_id"`)
}

func TestApplicationsQueryUsesDocumentNames(t *testing.T) {
	for _, field := range []string{`"jobId"`, `"applicantName"`, `"resume"`, `"testScore"`} {
		assert.Contains(t, applicationsQuery, field)
	}
}

func TestNewRequiresURI(t *testing.T) {
	_, err := New(store.Config{}, zap.NewNop())
	require.Error(t, err)

	s, err := New(store.Config{URI: "postgres://localhost/ranker"}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, s.Close(context.Background()))
}

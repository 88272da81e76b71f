package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEmbeddings struct {
	responses []*openai.CreateEmbeddingResponse
	errs      []error
	params    []openai.EmbeddingNewParams
}

func (f *fakeEmbeddings) New(_ context.Context, body openai.EmbeddingNewParams, _ ...option.RequestOption) (*openai.CreateEmbeddingResponse, error) {
	i := len(f.params)
	f.params = append(f.params, body)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.responses[i], nil
}

func TestEmbedRestoresInputOrder(t *testing.T) {
	api := &fakeEmbeddings{responses: []*openai.CreateEmbeddingResponse{{
		Data: []openai.Embedding{
			{Index: 1, Embedding: []float64{0, 1}},
			{Index: 0, Embedding: []float64{1, 0}},
		},
	}}}

	e := newEmbedder(api, Config{Model: "text-embedding-3-large"}, zap.NewNop())
	vectors, err := e.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, "text-embedding-3-large", e.EmbeddingModel())
	require.Len(t, api.params, 1)
	assert.Equal(t, []string{"first", "second"}, api.params[0].Input.OfArrayOfStrings)
}

func TestEmbedDefaultsModel(t *testing.T) {
	e := newEmbedder(&fakeEmbeddings{}, Config{}, nil)
	assert.Equal(t, defaultModel, e.EmbeddingModel())

	vectors, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	api := &fakeEmbeddings{
		errs: []error{&openai.Error{StatusCode: 503}, nil},
		responses: []*openai.CreateEmbeddingResponse{nil, {
			Data: []openai.Embedding{{Index: 0, Embedding: []float64{0.5}}},
		}},
	}

	e := newEmbedder(api, Config{MaxRetries: 2}, nil)
	e.retry.InitialWait = time.Millisecond
	e.retry.MaxWait = time.Millisecond

	vectors, err := e.Embed(context.Background(), []string{"go"})
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Len(t, api.params, 2)
}

func TestEmbedCountMismatch(t *testing.T) {
	api := &fakeEmbeddings{responses: []*openai.CreateEmbeddingResponse{{}}}

	_, err := newEmbedder(api, Config{}, nil).Embed(context.Background(), []string{"go"})
	require.Error(t, err)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&openai.Error{StatusCode: 429}))
	assert.False(t, retryable(&openai.Error{StatusCode: 401}))
	assert.False(t, retryable(errors.New("boom")))
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
}

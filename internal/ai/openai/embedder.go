package openai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spigell/applicant-ranker/internal/logger"
	"github.com/spigell/applicant-ranker/internal/retry"
	"go.uber.org/zap"
)

const (
	Provider = "openai"

	defaultModel = "text-embedding-3-small"
)

type embeddingsAPI interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// Config describes an OpenAI compatible embeddings endpoint.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
}

// Embedder calls the embeddings endpoint of an OpenAI compatible API.
type Embedder struct {
	api    embeddingsAPI
	model  string
	retry  retry.Config
	logger *zap.Logger
}

func New(cfg Config, log *zap.Logger) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are handled by retry.Do
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)

	return newEmbedder(&client.Embeddings, cfg, log), nil
}

func newEmbedder(api embeddingsAPI, cfg Config, log *zap.Logger) *Embedder {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	rc := retry.Default
	if cfg.MaxRetries > 0 {
		rc.MaxRetries = cfg.MaxRetries
	}

	return &Embedder{
		api:    api,
		model:  model,
		retry:  rc,
		logger: logger.WithCommonFields(log, Provider, model),
	}
}

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := retry.Do(ctx, e.retry, e.logger, retryable, func(ctx context.Context) (*openai.CreateEmbeddingResponse, error) {
		return e.api.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
			Model: openai.EmbeddingModel(e.model),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai api returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, item := range data {
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("openai api returned empty embedding at index %d", i)
		}
		vector := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vector[j] = float32(v)
		}
		vectors[i] = vector
	}

	e.logger.Debug("openai embeddings created",
		zap.Int("texts", len(texts)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
	)

	return vectors, nil
}

func (e *Embedder) EmbeddingModel() string {
	return e.model
}

func retryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return retry.IsRetryableStatus(apiErr.StatusCode)
	}
	return retry.IsTransient(err)
}

package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/applicant-ranker/internal/logger"
	"github.com/spigell/applicant-ranker/internal/retry"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	Provider = "gemini"

	defaultGenerationModel = "gemini-2.5-flash"
	defaultEmbeddingModel  = "text-embedding-004"
	defaultMaxRetries      = 3
)

// modelsAPI is the part of genai.Models the client relies on.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Config describes how to reach the Gemini API.
type Config struct {
	APIKey          string
	GenerationModel string
	EmbeddingModel  string
	MaxRetries      int
}

// Client wraps the Google GenAI client for text generation and embeddings.
type Client struct {
	models          modelsAPI
	generationModel string
	embeddingModel  string
	retry           retry.Config
	logger          *zap.Logger
}

// New creates a Client configured for the Gemini API backend.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newClient(client.Models, cfg, log), nil
}

func newClient(models modelsAPI, cfg Config, log *zap.Logger) *Client {
	generation := strings.TrimSpace(cfg.GenerationModel)
	if generation == "" {
		generation = defaultGenerationModel
	}

	embedding := strings.TrimSpace(cfg.EmbeddingModel)
	if embedding == "" {
		embedding = defaultEmbeddingModel
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	rc := retry.Default
	rc.MaxRetries = maxRetries

	return &Client{
		models:          models,
		generationModel: generation,
		embeddingModel:  embedding,
		retry:           rc,
		logger:          logger.WithFields(log, zap.String(logger.FieldProvider, Provider)),
	}
}

// GenerateContent sends the prompt to Gemini and returns the textual response.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.models == nil {
		return "", errors.New("gemini client is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	log := c.logger.With(zap.String(logger.FieldModel, c.generationModel))

	resp, err := retry.Do(ctx, c.retry, log, c.retryable, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return c.models.GenerateContent(ctx, c.generationModel, genai.Text(prompt), nil)
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c == nil || c.models == nil {
		return nil, errors.New("gemini client is not initialized")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	log := c.logger.With(zap.String(logger.FieldModel, c.embeddingModel))
	log.Debug("gemini embed content request", zap.Int("texts", len(texts)))

	resp, err := retry.Do(ctx, c.retry, log, c.retryable, func(ctx context.Context) (*genai.EmbedContentResponse, error) {
		return c.models.EmbedContent(ctx, c.embeddingModel, contents, &genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		})
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini api returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("gemini api returned empty embedding at index %d", i)
		}
		vectors[i] = embedding.Values
	}

	return vectors, nil
}

func (c *Client) GenerationModel() string {
	if c == nil {
		return ""
	}
	return c.generationModel
}

func (c *Client) EmbeddingModel() string {
	if c == nil {
		return ""
	}
	return c.embeddingModel
}

var retryDelayPattern = regexp.MustCompile(`(?i)retry(?:\s+after|\s+in)?\s+(\d+(?:\.\d+)?)\s*s`)

// retryable reports whether a Gemini API error is transient. Quota errors
// asking to wait longer than the backoff ceiling are treated as final.
func (c *Client) retryable(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok {
		return retry.IsTransient(err)
	}

	if !retry.IsRetryableStatus(apiErr.Code) {
		return false
	}

	if apiErr.Code == http.StatusTooManyRequests {
		if delay, ok := parseRetryDelay(apiErr.Message); ok && delay > c.retry.WithDefaults().MaxWait {
			c.logger.Warn("gemini quota delay exceeds retry budget",
				zap.Duration("requested_delay", delay),
				zap.String("status", apiErr.Status),
			)
			return false
		}
	}

	return true
}

func asAPIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func parseRetryDelay(message string) (time.Duration, bool) {
	match := retryDelayPattern.FindStringSubmatch(message)
	if len(match) < 2 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

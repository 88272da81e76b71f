package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu sync.Mutex

	generateQueue []fakeGenerate
	embedQueue    []fakeEmbed

	generateCalls []string
	embedCalls    [][]*genai.Content
}

type fakeGenerate struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeEmbed struct {
	resp *genai.EmbedContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls = append(f.generateCalls, model)
	if len(f.generateQueue) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := f.generateQueue[0]
	f.generateQueue = f.generateQueue[1:]
	return next.resp, next.err
}

func (f *fakeModels) EmbedContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls = append(f.embedCalls, contents)
	if len(f.embedQueue) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := f.embedQueue[0]
	f.embedQueue = f.embedQueue[1:]
	return next.resp, next.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestClient(models *fakeModels, maxRetries int) *Client {
	c := newClient(models, Config{GenerationModel: "gemini-pro", EmbeddingModel: "embed-v1", MaxRetries: maxRetries}, zap.NewNop())
	c.retry.InitialWait = time.Millisecond
	c.retry.MaxWait = 5 * time.Millisecond
	return c
}

func TestClientRetriesOnTemporaryError(t *testing.T) {
	models := &fakeModels{generateQueue: []fakeGenerate{
		{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}},
		{resp: textResponse("retry ok")},
	}}

	output, err := newTestClient(models, 2).GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.generateCalls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.generateCalls))
	}
	if models.generateCalls[0] != "gemini-pro" {
		t.Fatalf("unexpected model: %q", models.generateCalls[0])
	}
}

func TestClientStopsAfterRetriesExhausted(t *testing.T) {
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models := &fakeModels{generateQueue: []fakeGenerate{{err: tempErr}, {err: tempErr}, {err: tempErr}}}

	_, err := newTestClient(models, 2).GenerateContent(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if len(models.generateCalls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(models.generateCalls))
	}
}

func TestClientDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{generateQueue: []fakeGenerate{{err: genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}}}}

	_, err := newTestClient(models, 3).GenerateContent(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(models.generateCalls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.generateCalls))
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	models := &fakeModels{generateQueue: []fakeGenerate{{err: genai.APIError{Code: http.StatusBadRequest}}}}

	if _, err := newTestClient(models, 3).GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error")
	}

	if len(models.generateCalls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.generateCalls))
	}
}

func TestClientRejectsEmptyPrompt(t *testing.T) {
	if _, err := newTestClient(&fakeModels{}, 1).GenerateContent(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestClientEmbed(t *testing.T) {
	models := &fakeModels{embedQueue: []fakeEmbed{{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{
			{Values: []float32{1, 0}},
			{Values: []float32{0, 1}},
		},
	}}}}

	vectors, err := newTestClient(models, 1).Embed(context.Background(), []string{"go", "sql"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vectors) != 2 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}

	if len(models.embedCalls) != 1 || len(models.embedCalls[0]) != 2 {
		t.Fatalf("expected a single batched call, got %+v", models.embedCalls)
	}
	if got := models.embedCalls[0][1].Parts[0].Text; got != "sql" {
		t.Fatalf("unexpected content order: %q", got)
	}
}

func TestClientEmbedCountMismatch(t *testing.T) {
	models := &fakeModels{embedQueue: []fakeEmbed{{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}},
	}}}}

	if _, err := newTestClient(models, 1).Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error on embedding count mismatch")
	}
}

func TestParseRetryDelay(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Duration{
		"retry after 60 seconds": 60 * time.Second,
		"Please retry in 1.5s.":  1500 * time.Millisecond,
	}
	for message, want := range cases {
		got, ok := parseRetryDelay(message)
		if !ok || got != want {
			t.Fatalf("parseRetryDelay(%q) = %v, %v; want %v", message, got, ok, want)
		}
	}

	if _, ok := parseRetryDelay("quota exhausted"); ok {
		t.Fatal("expected no delay in message without hint")
	}
}

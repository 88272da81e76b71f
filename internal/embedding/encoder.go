// Package embedding turns text into vectors and compares them.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/applicant-ranker/internal/ai"
	"go.uber.org/zap"
)

const defaultBatchSize = 64

// Encoder produces fixed-dimension vectors for texts. Output is in input
// order and deterministic for a given model.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Batched adapts a hosted embedder to Encoder, splitting large inputs into
// requests of at most batchSize texts.
type Batched struct {
	embedder  ai.Embedder
	batchSize int
	logger    *zap.Logger
}

func NewBatched(embedder ai.Embedder, batchSize int, logger *zap.Logger) *Batched {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batched{embedder: embedder, batchSize: batchSize, logger: logger}
}

func (b *Batched) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if b == nil || b.embedder == nil {
		return nil, errors.New("embedder is not configured")
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))

		batch, err := b.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding batch %d-%d: got %d vectors", start, end, len(batch))
		}

		vectors = append(vectors, batch...)
	}

	b.logger.Debug("encoded texts", zap.Int("texts", len(texts)), zap.Int("batch_size", b.batchSize))

	return vectors, nil
}

func (b *Batched) Model() string {
	return b.embedder.EmbeddingModel()
}

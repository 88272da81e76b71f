// Package ai holds the contracts shared by the hosted model providers.
package ai

import "context"

// Embedder turns texts into dense vectors using a hosted embedding model.
// Vectors are returned in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbeddingModel() string
}

// Generator produces free text from a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

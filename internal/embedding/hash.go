package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const (
	HashModel            = "hash-bow-v1"
	defaultHashDimension = 256
)

// HashEncoder is an offline encoder that maps lowercase word tokens into a
// fixed number of buckets. Texts sharing words get similar vectors, which is
// enough for local runs without a hosted model.
type HashEncoder struct {
	dimension int
}

func NewHashEncoder(dimension int) *HashEncoder {
	if dimension <= 0 {
		dimension = defaultHashDimension
	}
	return &HashEncoder{dimension: dimension}
}

func (h *HashEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = h.encode(text)
	}
	return vectors, nil
}

func (h *HashEncoder) Model() string {
	return fmt.Sprintf("%s-%d", HashModel, h.dimension)
}

func (h *HashEncoder) encode(text string) []float32 {
	vector := make([]float32, h.dimension)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '+' && r != '#'
	})

	for _, token := range tokens {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(token))
		sum := hasher.Sum32()

		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		vector[int(sum>>1)%h.dimension] += sign
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}
	return vector
}

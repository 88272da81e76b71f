package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbeddingModel() string { return "fake-v1" }

func (f *fakeEmbedder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "mismatched", a: []float32{1}, b: []float32{1, 0}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.3))
	assert.Equal(t, 0.4, Clamp01(0.4))
	assert.Equal(t, 1.0, Clamp01(1.2))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestBatchedSplitsRequests(t *testing.T) {
	fake := &fakeEmbedder{}
	enc := NewBatched(fake, 2, nil)

	vectors, err := enc.Encode(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)

	require.Len(t, vectors, 5)
	assert.Equal(t, float32(3), vectors[2][0])
	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc", "dddd"}, {"eeeee"}}, fake.batches)
	assert.Equal(t, "fake-v1", enc.Model())
}

func TestBatchedPropagatesErrors(t *testing.T) {
	enc := NewBatched(&fakeEmbedder{err: errors.New("quota")}, 0, nil)

	_, err := enc.Encode(context.Background(), []string{"a"})
	require.ErrorContains(t, err, "quota")
}

func TestHashEncoderIsDeterministic(t *testing.T) {
	enc := NewHashEncoder(64)
	ctx := context.Background()

	first, err := enc.Encode(ctx, []string{"Go developer with PostgreSQL"})
	require.NoError(t, err)
	second, err := enc.Encode(ctx, []string{"Go developer with PostgreSQL"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.InDelta(t, 1, CosineSimilarity(first[0], second[0]), 1e-6)
}

func TestHashEncoderRelatedTextsAreCloser(t *testing.T) {
	enc := NewHashEncoder(0)
	vectors, err := enc.Encode(context.Background(), []string{
		"python sql data analysis",
		"experienced in python and sql",
		"forklift operator warehouse",
	})
	require.NoError(t, err)

	related := CosineSimilarity(vectors[0], vectors[1])
	unrelated := CosineSimilarity(vectors[0], vectors[2])
	assert.Greater(t, related, unrelated)

	blank, err := enc.Encode(context.Background(), []string{"   "})
	require.NoError(t, err)
	assert.Zero(t, CosineSimilarity(blank[0], vectors[0]))
}

func TestCachedEncodesEachTextOnce(t *testing.T) {
	fake := &fakeEmbedder{}
	cached := NewCached(NewBatched(fake, 10, nil), CacheConfig{Enabled: true}, nil, nil)
	ctx := context.Background()

	first, err := cached.Encode(ctx, []string{"go", "sql", "go"})
	require.NoError(t, err)
	assert.Equal(t, first[0], first[2])
	assert.Equal(t, [][]string{{"go", "sql"}}, fake.batches)

	second, err := cached.Encode(ctx, []string{"sql", "docker"})
	require.NoError(t, err)
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, []string{"docker"}, fake.batches[1])

	_, err = cached.Encode(ctx, []string{"go", "docker"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls())

	hits, misses := cached.Stats()
	assert.Equal(t, int64(3), hits)
	assert.Equal(t, int64(4), misses)
}

func TestCachedEvictsOldestEntries(t *testing.T) {
	fake := &fakeEmbedder{}
	cached := NewCached(NewBatched(fake, 10, nil), CacheConfig{MaxEntries: 2, TTL: time.Hour}, nil, nil)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		_, err := cached.Encode(ctx, []string{text})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	count := 0
	cached.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.Equal(t, 2, count)

	_, ok := cached.l1.Load(CacheKey("fake-v1", "a"))
	assert.False(t, ok, "oldest entry should be evicted")
}

func TestCacheKeyDependsOnModel(t *testing.T) {
	assert.NotEqual(t, CacheKey("m1", "go"), CacheKey("m2", "go"))
	assert.Equal(t, CacheKey("m1", "go"), CacheKey("m1", "go"))
}

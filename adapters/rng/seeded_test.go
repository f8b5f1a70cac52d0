package rng

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draw(t *testing.T, a *SeededAdapter, scenario string, n int, seed int64) []float64 {
	t.Helper()
	r, err := a.Stream(context.Background(), scenario, n, seed)
	require.NoError(t, err)
	out := make([]float64, 8)
	for i := range out {
		out[i] = r.NormFloat64()
	}
	return out
}

func TestStreamIsDeterministic(t *testing.T) {
	a := NewSeededAdapter()
	assert.Equal(t, draw(t, a, "custom", 30, 42), draw(t, a, "custom", 30, 42))
}

func TestStreamsAreDistinctPerKey(t *testing.T) {
	a := NewSeededAdapter()
	base := draw(t, a, "custom", 30, 42)

	assert.NotEqual(t, base, draw(t, a, "custom", 31, 42), "neighbouring n must not share a stream")
	assert.NotEqual(t, base, draw(t, a, "other", 30, 42), "scenarios must not share a stream")
	assert.NotEqual(t, base, draw(t, a, "custom", 30, 43), "seeds must not share a stream")
}

func TestSeededStreamHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSeededAdapter().SeededStream(ctx, "x", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

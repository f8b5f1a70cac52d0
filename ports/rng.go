package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates the RNG for one row of a sweep. Distinct (scenario, n)
	// pairs get independent streams; the same inputs always reproduce the
	// same stream, whatever order rows are evaluated in.
	Stream(ctx context.Context, scenario string, n int, baseSeed int64) (*rand.Rand, error)
}

package rng

import (
	"context"
	"encoding/binary"
	"math/rand/v2"
	"strconv"

	"powersim/ports"

	"github.com/cespare/xxhash/v2"
)

// SeededAdapter derives independent PCG streams from a base seed. The
// 128-bit PCG state is produced by hashing the base seed together with the
// stream key, so neighbouring keys (n=20, n=21) land on unrelated states.
type SeededAdapter struct{}

var _ ports.RNGPort = (*SeededAdapter)(nil)

// NewSeededAdapter creates the default RNG adapter
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// SeededStream creates a deterministic generator for a named operation
func (a *SeededAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hi, lo := deriveState(seed, name)
	return rand.New(rand.NewPCG(hi, lo)), nil
}

// Stream creates the generator for one (scenario, n) row of a sweep
func (a *SeededAdapter) Stream(ctx context.Context, scenario string, n int, baseSeed int64) (*rand.Rand, error) {
	return a.SeededStream(ctx, scenario+"/n="+strconv.Itoa(n), baseSeed)
}

func deriveState(seed int64, key string) (uint64, uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))

	d := xxhash.New()
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(key)
	_, _ = d.WriteString("#hi")
	hi := d.Sum64()

	d.Reset()
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(key)
	_, _ = d.WriteString("#lo")
	lo := d.Sum64()

	return hi, lo
}

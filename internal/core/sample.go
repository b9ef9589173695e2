package core

import (
	"math"
	"math/rand"

	"cropmap_service/internal/domain/model"
)

const (
	DefaultSampleFraction = 0.005
	DefaultSampleSeed     = 42
)

// Sampler draws a fixed fraction of records without replacement using a
// seeded generator, so the same input always yields the same sample.
type Sampler struct {
	Fraction float64
	Seed     int64
}

// Size returns how many records a sample of n rows holds.
func (s Sampler) Size(n int) int {
	if n <= 0 || s.Fraction <= 0 {
		return 0
	}
	k := int(math.Round(s.Fraction * float64(n)))
	if k > n {
		k = n
	}
	return k
}

// Sample returns the drawn records in draw order.
func (s Sampler) Sample(records []model.Record) []model.Record {
	k := s.Size(len(records))
	if k == 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(s.Seed))
	perm := rng.Perm(len(records))
	out := make([]model.Record, k)
	for i := 0; i < k; i++ {
		out[i] = records[perm[i]]
	}
	return out
}

package lotto

import (
	"fmt"

	"lottosim/internal/models"
)

// Sampler draws distinct numbers from [1, poolSize].
type Sampler struct {
	generator RandomGenerator
}

// NewSampler returns a Sampler backed by generator. A nil generator means crypto/rand.
func NewSampler(generator RandomGenerator) *Sampler {
	if generator == nil {
		generator = NewSecureRandomGenerator()
	}
	return &Sampler{generator: generator}
}

// Sample returns count distinct integers in [1, poolSize], in the order they were drawn.
//
// It uses rejection sampling: a value already drawn is thrown away and drawn again.
// The loop has no fixed upper bound, but with count <= poolSize it terminates with
// probability 1 and, for a 45-number pool, almost always within a few extra draws.
func (s *Sampler) Sample(poolSize, count int) ([]int, error) {
	if poolSize <= 0 || count <= 0 {
		return nil, fmt.Errorf("%w: pool size and count must be positive, got pool=%d count=%d",
			ErrInvalidParameter, poolSize, count)
	}
	if count > poolSize {
		return nil, fmt.Errorf("%w: cannot draw %d distinct numbers from a pool of %d",
			ErrInvalidParameter, count, poolSize)
	}

	seen := make(map[int]struct{}, count)
	out := make([]int, 0, count)
	for len(out) < count {
		n, err := s.generator.GenerateInRange(1, poolSize)
		if err != nil {
			return nil, fmt.Errorf("generate number: %w", err)
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

// DrawTicket samples a fresh six-number ticket.
func (s *Sampler) DrawTicket() (models.Draw, error) {
	var d models.Draw
	numbers, err := s.Sample(models.PoolSize, models.DrawSize)
	if err != nil {
		return d, err
	}
	copy(d[:], numbers)
	return d, nil
}

// DrawWithBonus samples seven numbers at once. The first six form the draw and
// the seventh is the bonus, so the bonus never repeats a main number.
func (s *Sampler) DrawWithBonus() (models.WinningDraw, error) {
	var w models.WinningDraw
	numbers, err := s.Sample(models.PoolSize, models.DrawSize+1)
	if err != nil {
		return w, err
	}
	copy(w.Numbers[:], numbers[:models.DrawSize])
	w.Bonus = numbers[models.DrawSize]
	return w, nil
}

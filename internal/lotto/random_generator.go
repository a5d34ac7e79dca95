package lotto

import (
	"crypto/rand"
	"math/big"
)

// RandomGenerator produces uniformly distributed integers.
type RandomGenerator interface {
	// GenerateInRange returns a number in [min, max], both inclusive.
	GenerateInRange(min, max int) (int, error)
}

// SecureRandomGenerator implements RandomGenerator on top of crypto/rand.
type SecureRandomGenerator struct{}

// NewSecureRandomGenerator creates a new secure random generator
func NewSecureRandomGenerator() *SecureRandomGenerator {
	return &SecureRandomGenerator{}
}

// GenerateInRange generates a secure random number within [min, max] (inclusive)
func (g *SecureRandomGenerator) GenerateInRange(min, max int) (int, error) {
	if min > max {
		return 0, ErrInvalidRange
	}
	if min == max {
		return min, nil
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + min, nil
}

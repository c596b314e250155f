package courier

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// Default ETA range of RandomPolicy, in minutes.
const (
	DefaultMinETA = 5
	DefaultMaxETA = 20
)

// Decision is the answer of a Policy.
type Decision struct {
	Accept bool
	ETA    int
}

// RandomPolicy accepts with probability acceptRate and draws the ETA
// uniformly from [minETA, maxETA].
type RandomPolicy struct {
	mu         sync.Mutex
	rng        *rand.Rand
	acceptRate float64
	minETA     int
	maxETA     int
}

// NewRandomPolicy validates the parameters and seeds the generator.
func NewRandomPolicy(acceptRate float64, minETA, maxETA int, seed int64) (*RandomPolicy, error) {
	if math.IsNaN(acceptRate) || acceptRate < 0 || acceptRate > 1 {
		return nil, fmt.Errorf("%w: accept rate must be within [0,1], got %v", apperr.ErrInvalid, acceptRate)
	}
	if minETA <= 0 || maxETA < minETA {
		return nil, fmt.Errorf("%w: invalid eta range [%d,%d]", apperr.ErrInvalid, minETA, maxETA)
	}
	return &RandomPolicy{
		rng:        rand.New(rand.NewSource(seed)),
		acceptRate: acceptRate,
		minETA:     minETA,
		maxETA:     maxETA,
	}, nil
}

// Decide draws a decision. A rate of 1 always accepts and 0 never does.
func (p *RandomPolicy) Decide(_ context.Context, _ domain.Announcement) (Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rng.Float64() >= p.acceptRate {
		return Decision{}, nil
	}
	return Decision{Accept: true, ETA: p.minETA + p.rng.Intn(p.maxETA-p.minETA+1)}, nil
}

// FixedPolicy always answers the same way.
type FixedPolicy struct {
	Accept bool
	ETA    int
}

// Decide returns the fixed decision.
func (p FixedPolicy) Decide(context.Context, domain.Announcement) (Decision, error) {
	return Decision{Accept: p.Accept, ETA: p.ETA}, nil
}

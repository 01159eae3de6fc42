package backoff

import (
	"fmt"
	"math"
	"time"
)

// Strategy computes the delay to wait before a given attempt.
//
// Contract:
// - Interval must be pure: the same attempt always yields the same delay.
// - Concurrency: implementations must be safe for concurrent use.
type Strategy interface {
	// Interval returns the delay before attempt (attempt >= 2 for retries).
	Interval(attempt int) time.Duration
}

// Default exponential parameters.
const (
	DefaultConstant   = 2.0
	DefaultMultiplier = time.Millisecond
)

// ExponentialConfig configures exponential backoff. A zero field means its
// default, so a zero Constant or Multiplier cannot be requested. Negative
// values make NewExponential fail with ErrInvalidConfig.
type ExponentialConfig struct {
	// Constant is the base raised to the attempt number. Values in (0, 1)
	// shrink the delay each attempt.
	// Default: 2
	Constant float64

	// Multiplier scales constant^attempt into a duration.
	// Default: 1ms
	Multiplier time.Duration
}

// Exponential computes constant^attempt * multiplier.
type Exponential struct {
	constant   float64
	multiplier time.Duration
}

// NewExponential creates an exponential strategy.
// Zero values take the defaults; negative values are rejected.
func NewExponential(config ExponentialConfig) (*Exponential, error) {
	if config.Constant == 0 {
		config.Constant = DefaultConstant
	}
	if config.Multiplier == 0 {
		config.Multiplier = DefaultMultiplier
	}
	if config.Constant < 0 || math.IsNaN(config.Constant) {
		return nil, fmt.Errorf("%w: constant must be > 0, got %v", ErrInvalidConfig, config.Constant)
	}
	if config.Multiplier < 0 {
		return nil, fmt.Errorf("%w: multiplier must be > 0, got %v", ErrInvalidConfig, config.Multiplier)
	}

	return &Exponential{constant: config.Constant, multiplier: config.Multiplier}, nil
}

// Interval returns constant^attempt * multiplier, saturating at the
// largest representable duration.
func (e *Exponential) Interval(attempt int) time.Duration {
	return saturate(math.Pow(e.constant, float64(attempt)) * float64(e.multiplier))
}

// Linear increases the delay by Step on every attempt.
type Linear struct {
	Step time.Duration
}

// Interval returns attempt * Step.
func (l Linear) Interval(attempt int) time.Duration {
	return saturate(float64(attempt) * float64(l.Step))
}

// Constant waits the same delay before every attempt.
type Constant struct {
	Delay time.Duration
}

// Interval returns Delay.
func (c Constant) Interval(int) time.Duration {
	return c.Delay
}

func saturate(f float64) time.Duration {
	if f >= math.MaxInt64 || math.IsInf(f, 1) {
		return time.Duration(math.MaxInt64)
	}
	if f <= 0 {
		return 0
	}
	return time.Duration(f)
}

// Package backoff computes the delay between remediation passes.
package backoff

import (
	"fmt"
	"math"
	"time"
)

// Strategy selects how the inter-pass delay grows.
type Strategy int

const (
	Exponential Strategy = iota
	Linear
	Fixed
)

func (s Strategy) String() string {
	switch s {
	case Exponential:
		return "exponential"
	case Linear:
		return "linear"
	case Fixed:
		return "fixed"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy resolves a strategy by name.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "exponential":
		return Exponential, nil
	case "linear":
		return Linear, nil
	case "fixed":
		return Fixed, nil
	}
	return 0, fmt.Errorf("unrecognized backoff strategy %q", name)
}

// Config holds the tuning knobs for delay computation.
type Config struct {
	Strategy     Strategy
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns exponential backoff from 2s up to 5m, doubling.
func DefaultConfig() Config {
	return Config{
		Strategy:     Exponential,
		InitialDelay: 2 * time.Second,
		MaxDelay:     5 * time.Minute,
		Multiplier:   2,
	}
}

// NextDelay computes the delay to apply after the given pass. iteration is
// 1-based; callers validate iteration >= 1. The result never exceeds
// MaxDelay and is non-decreasing until it saturates.
func (c Config) NextDelay(iteration int) time.Duration {
	switch c.Strategy {
	case Linear:
		d := time.Duration(iteration) * c.InitialDelay
		return c.cap(d)
	case Fixed:
		return c.InitialDelay
	default:
		factor := math.Pow(c.Multiplier, float64(iteration-1))
		d := time.Duration(float64(c.InitialDelay) * factor)
		// Overflow from large exponents shows up as a non-positive duration.
		if d <= 0 {
			return c.MaxDelay
		}
		return c.cap(d)
	}
}

func (c Config) cap(d time.Duration) time.Duration {
	if c.MaxDelay > 0 && d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

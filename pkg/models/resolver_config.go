package models

import (
	"fmt"
	"time"
)

// MaxRefineIterationsLimit caps the configurable repair budget.
const MaxRefineIterationsLimit = 20

// ResolverConfig is the immutable configuration threaded through one
// resolution. Every component reads its knobs from here, never from
// ambient state.
type ResolverConfig struct {
	// MaxRefineIterations is the inclusive upper bound on repair calls.
	// The first execution is not a repair.
	MaxRefineIterations int `json:"max_refine_iterations"`
	// ProviderTimeout bounds each generation provider call.
	ProviderTimeout time.Duration `json:"provider_timeout"`
	// ExecuteTimeout bounds each store execution.
	ExecuteTimeout time.Duration `json:"execute_timeout"`
	// MaxRows caps the rows returned by one execution.
	MaxRows int `json:"max_rows"`
	// Temperature is passed to every generation call.
	Temperature float64 `json:"temperature"`
}

// DefaultResolverConfig returns the defaults used when nothing is configured.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MaxRefineIterations: 3,
		ProviderTimeout:     60 * time.Second,
		ExecuteTimeout:      30 * time.Second,
		MaxRows:             1000,
		Temperature:         0,
	}
}

// WithMaxRefineIterations returns a copy with a different repair budget.
func (c ResolverConfig) WithMaxRefineIterations(n int) ResolverConfig {
	c.MaxRefineIterations = n
	return c
}

// Validate checks the configuration bounds.
func (c ResolverConfig) Validate() error {
	if c.MaxRefineIterations < 0 || c.MaxRefineIterations > MaxRefineIterationsLimit {
		return fmt.Errorf("max refine iterations must be in [0, %d], got %d", MaxRefineIterationsLimit, c.MaxRefineIterations)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("provider timeout must be positive")
	}
	if c.ExecuteTimeout <= 0 {
		return fmt.Errorf("execute timeout must be positive")
	}
	if c.MaxRows <= 0 {
		return fmt.Errorf("max rows must be positive")
	}
	return nil
}

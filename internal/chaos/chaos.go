// Package chaos decides, per event, whether a simulated failure is injected.
package chaos

import (
	"math/rand/v2"
	"sync"
)

// Injector draws a Bernoulli sample with probability Rate on every call while
// enabled. A disabled Injector never fires and never consumes randomness.
type Injector struct {
	enabled bool
	rate    float64

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Injector.
type Option func(*Injector)

// WithSource replaces the process-wide random source; tests use a seeded one.
func WithSource(src rand.Source) Option {
	return func(i *Injector) {
		i.rng = rand.New(src)
	}
}

// New returns an Injector. Rates outside [0, 1] are clamped.
func New(enabled bool, rate float64, opts ...Option) *Injector {
	i := &Injector{
		enabled: enabled,
		rate:    min(max(rate, 0), 1),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Enabled reports whether injection is switched on.
func (i *Injector) Enabled() bool { return i.enabled }

// Rate returns the configured injection probability.
func (i *Injector) Rate() float64 { return i.rate }

// ShouldInject reports whether the current event must fail.
func (i *Injector) ShouldInject() bool {
	if !i.enabled {
		return false
	}
	return i.float64() < i.rate
}

func (i *Injector) float64() float64 {
	if i.rng == nil {
		return rand.Float64()
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rng.Float64()
}

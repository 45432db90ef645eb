package resilience

import "context"

// PolicyConfig groups the retry and breaker settings of one dependency.
type PolicyConfig struct {
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Breaker BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// ApplyDefaults fills zero fields of both halves.
func (c *PolicyConfig) ApplyDefaults() {
	c.Retry.ApplyDefaults()
	c.Breaker.ApplyDefaults()
}

// Validate checks the retry bounds.
func (c *PolicyConfig) Validate() error {
	return c.Retry.Validate()
}

// Policy retries calls and counts each attempt against a breaker.
type Policy struct {
	retry   RetryConfig
	breaker *CircuitBreaker
}

// NewPolicy builds a Policy for the named dependency.
func NewPolicy(name string, cfg PolicyConfig, onChange func(name string, from, to State)) *Policy {
	cfg.ApplyDefaults()
	return &Policy{
		retry:   cfg.Retry,
		breaker: NewCircuitBreaker(name, cfg.Breaker, onChange),
	}
}

// WithRetryIf returns a copy of the policy sharing the breaker but using
// a different retry predicate.
func (p *Policy) WithRetryIf(fn func(error) bool) *Policy {
	cp := *p
	cp.retry.RetryIf = fn
	return &cp
}

// Breaker exposes the underlying breaker.
func (p *Policy) Breaker() *CircuitBreaker { return p.breaker }

// Do runs fn under p. A nil policy calls fn once.
func Do[T any](ctx context.Context, p *Policy, fn func() (T, error)) (T, error) {
	if p == nil {
		return fn()
	}
	return Retry(ctx, p.retry, func() (T, error) {
		var out T
		err := p.breaker.Execute(func() error {
			var err error
			out, err = fn()
			return err
		})
		return out, err
	})
}

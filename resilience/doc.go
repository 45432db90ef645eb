// Package resilience wraps outbound calls with bounded retries and a
// circuit breaker.
//
// Supplier clients combine both through Policy:
//
//	p := resilience.NewPolicy("fast", cfg)
//	raw, err := resilience.Do(ctx, p, func() ([]byte, error) {
//	    return submit(ctx)
//	})
//
// An open breaker fails fast with ErrCircuitOpen and is never retried.
package resilience

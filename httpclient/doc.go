// Package httpclient is the outbound HTTP client used for supplier APIs and
// remote media downloads.
//
// Every call goes through an optional resilience.Policy, so transient
// failures (timeouts, connection errors, 429 and 5xx) are retried and a
// failing supplier trips its breaker:
//
//	c, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.fast.example",
//	    Timeout: 20 * time.Second,
//	    Auth:    httpclient.BearerAuth(key),
//	    Policy:  resilience.NewPolicy("fast", policyCfg, nil),
//	})
//	resp, err := c.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/v1/jobs", Body: payload})
//
// Non-2xx responses are returned as *Error together with the response.
package httpclient

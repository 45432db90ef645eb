package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kbukum/scribe/resilience"
)

// Client sends requests with auth, default headers and an optional policy.
type Client struct {
	http   *http.Client
	cfg    Config
	policy *resilience.Policy
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy := cfg.Policy
	if policy != nil {
		policy = policy.WithRetryIf(IsRetryable)
	}
	return &Client{
		http:   &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone(), Timeout: cfg.Timeout},
		cfg:    cfg,
		policy: policy,
	}, nil
}

// Do sends req and buffers the reply. On a non-2xx status both the response
// and an *Error are returned.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var last *Response
	_, err := resilience.Do(ctx, c.policy, func() (struct{}, error) {
		resp, err := c.once(ctx, req)
		if resp != nil {
			last = resp
		}
		return struct{}{}, err
	})
	return last, err
}

// DoStream sends req once and hands the body to the caller. It is meant for
// media downloads, which must not be buffered.
func (c *Client) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	streaming := &http.Client{Transport: c.http.Transport}
	resp, err := streaming.Do(httpReq)
	if err != nil {
		return nil, c.wrapTransport(ctx, err)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, ClassifyStatus(resp.StatusCode, body)
	}
	return &StreamResponse{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}

func (c *Client) once(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.wrapTransport(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, transportError(KindConnection, fmt.Errorf("read body: %w", err))
	}
	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if e := ClassifyStatus(resp.StatusCode, body); e != nil {
		return out, e
	}
	return out, nil
}

func (c *Client) wrapTransport(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		// cancellation is not retryable
		return &Error{Kind: KindTimeout, Message: err.Error(), Err: ctx.Err()}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return transportError(KindTimeout, err)
	}
	return transportError(KindConnection, err)
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	target := req.Path
	if c.cfg.BaseURL != "" && !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(target, "/")
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, &Error{Kind: KindClient, Message: "encode body: " + err.Error(), Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &Error{Kind: KindClient, Message: err.Error(), Err: err}
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	auth := c.cfg.Auth
	if req.Auth != nil {
		auth = req.Auth
	}
	auth.decorate(httpReq)
	return httpReq, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain; charset=utf-8", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

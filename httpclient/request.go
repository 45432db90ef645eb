package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Request is one outbound call. Path is resolved against BaseURL unless it
// is already absolute. Body may be an io.Reader, []byte, string or any
// value that encodes as JSON; a reader is sent once and replays as empty.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    any
	Auth    *AuthConfig
}

// Response is a buffered reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) IsSuccess() bool { return r.StatusCode/100 == 2 }

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %d response: %w", r.StatusCode, err)
	}
	return nil
}

// StreamResponse leaves the body unread; Close it when done.
type StreamResponse struct {
	StatusCode    int
	Header        http.Header
	ContentLength int64
	Body          io.ReadCloser
}

func (r *StreamResponse) Close() error {
	if r.Body != nil {
		return r.Body.Close()
	}
	return nil
}

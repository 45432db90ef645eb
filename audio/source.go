package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/kbukum/scribe/httpclient"
)

// ErrTooLarge is returned when a download exceeds Config.MaxBytes.
var ErrTooLarge = errors.New("audio: source exceeds size limit")

// Media is a downloaded source stream. The caller closes Body.
type Media struct {
	Body        io.ReadCloser
	ContentType string
	// Title is taken from the served filename when present.
	Title string
}

// Source fetches original media.
type Source interface {
	Fetch(ctx context.Context, url string) (*Media, error)
}

// HTTPSource downloads media over HTTP.
type HTTPSource struct {
	client   *httpclient.Client
	maxBytes int64
}

// NewHTTPSource creates a Source limited to maxBytes per download.
func NewHTTPSource(client *httpclient.Client, maxBytes int64) *HTTPSource {
	return &HTTPSource{client: client, maxBytes: maxBytes}
}

// Fetch streams url.
func (s *HTTPSource) Fetch(ctx context.Context, url string) (*Media, error) {
	resp, err := s.client.DoStream(ctx, httpclient.Request{Method: http.MethodGet, Path: url})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if s.maxBytes > 0 && resp.ContentLength > s.maxBytes {
		_ = resp.Close()
		return nil, ErrTooLarge
	}
	body := resp.Body
	if s.maxBytes > 0 {
		body = &limitedBody{ReadCloser: resp.Body, left: s.maxBytes}
	}
	return &Media{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Title:       filenameTitle(resp.Header.Get("Content-Disposition")),
	}, nil
}

type limitedBody struct {
	io.ReadCloser
	left int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.left <= 0 {
		var peek [1]byte
		if n, _ := b.ReadCloser.Read(peek[:]); n > 0 {
			return 0, ErrTooLarge
		}
		return 0, io.EOF
	}
	if int64(len(p)) > b.left {
		p = p[:b.left]
	}
	n, err := b.ReadCloser.Read(p)
	b.left -= int64(n)
	return n, err
}

func filenameTitle(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	name := params["filename"]
	return strings.TrimSpace(strings.TrimSuffix(name, path.Ext(name)))
}

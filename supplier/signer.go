package supplier

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// Query parameters of a callback URL.
const (
	QueryJobID = "job_id"
	QuerySig   = "cb_sig"
)

// Signer computes HMAC-SHA256 signatures with one supplier's webhook secret.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer for secret. An empty secret produces a Signer
// that verifies nothing.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (s *Signer) Enabled() bool { return s != nil && len(s.secret) > 0 }

func (s *Signer) sum(data []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return mac.Sum(nil)
}

// Token signs a job id for the cb_sig query parameter.
func (s *Signer) Token(jobID string) string {
	return hex.EncodeToString(s.sum([]byte(jobID)))
}

// VerifyToken checks a cb_sig token against jobID.
func (s *Signer) VerifyToken(jobID, token string) bool {
	if !s.Enabled() || token == "" {
		return false
	}
	return verifyHex(s.sum([]byte(jobID)), token)
}

// Sign signs a raw request body, as suppliers do for their signature header.
func (s *Signer) Sign(body []byte) string {
	return hex.EncodeToString(s.sum(body))
}

// VerifyBody checks a hex signature header over body. A "sha256=" prefix is
// accepted.
func (s *Signer) VerifyBody(body []byte, signature string) bool {
	if !s.Enabled() || signature == "" {
		return false
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	return verifyHex(s.sum(body), signature)
}

func verifyHex(expected []byte, given string) bool {
	got, err := hex.DecodeString(strings.ToLower(given))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// CallbackURL builds <baseURL>/callback/<supplier>?job_id=<id>&cb_sig=<token>.
// The token is omitted when no secret is configured.
func (s *Signer) CallbackURL(baseURL, supplierName, jobID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/callback/" + url.PathEscape(supplierName))
	if err != nil {
		return "", fmt.Errorf("callback url: %w", err)
	}
	q := u.Query()
	q.Set(QueryJobID, jobID)
	if s.Enabled() {
		q.Set(QuerySig, s.Token(jobID))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Package jwt issues and verifies HMAC-signed tokens for a caller-defined
// claims type.
//
//	svc, err := jwt.NewService(cfg, func() *jwt.Claims { return &jwt.Claims{} })
//	claims, err := svc.Parse(token)
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Service signs and parses tokens carrying claims of type T.
type Service[T gojwt.Claims] struct {
	cfg      Config
	newEmpty func() T
	now      func() time.Time
}

// NewService validates cfg and builds a Service. newEmpty returns a fresh
// claims value to decode into.
func NewService[T gojwt.Claims](cfg Config, newEmpty func() T) (*Service[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	return &Service[T]{cfg: cfg, newEmpty: newEmpty, now: time.Now}, nil
}

// Generate signs claims. Claims implementing Stamp get iss, aud, iat and
// exp filled from the config first.
func (s *Service[T]) Generate(claims T) (string, error) {
	if st, ok := any(claims).(stamper); ok {
		st.Stamp(s.now(), s.cfg.TokenTTL, s.cfg.Issuer, s.cfg.Audience)
	}
	signed, err := gojwt.NewWithClaims(s.cfg.signingMethod(), claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, time claims and, when configured, issuer
// and audience.
func (s *Service[T]) Parse(token string) (T, error) {
	var zero T
	claims := s.newEmpty()
	parsed, err := gojwt.ParseWithClaims(token, claims, s.keyFunc, s.parserOptions()...)
	if err != nil {
		return zero, fmt.Errorf("jwt: parse token: %w", err)
	}
	if !parsed.Valid {
		return zero, errors.New("jwt: invalid token")
	}
	out, ok := parsed.Claims.(T)
	if !ok {
		return zero, errors.New("jwt: unexpected claims type")
	}
	return out, nil
}

func (s *Service[T]) keyFunc(*gojwt.Token) (any, error) {
	return []byte(s.cfg.Secret), nil
}

func (s *Service[T]) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.cfg.signingMethod().Alg()}),
		gojwt.WithLeeway(s.cfg.Leeway),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(s.cfg.Audience))
	}
	return opts
}

type stamper interface {
	Stamp(now time.Time, ttl time.Duration, issuer, audience string)
}

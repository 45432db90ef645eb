package jwt

import (
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

const secret = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T, cfg Config) *Service[*Claims] {
	t.Helper()
	svc, err := NewService(cfg, func() *Claims { return &Claims{} })
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestService_RoundTrip(t *testing.T) {
	svc := newService(t, Config{Secret: secret, Issuer: "billing", Audience: "scribe"})
	token, err := svc.Generate(&Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "u1"},
		Role:             RoleUser,
		Tier:             "paid",
	})
	if err != nil {
		t.Fatal(err)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != RoleUser || claims.Tier != "paid" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.ExpiresAt == nil || claims.Issuer != "billing" {
		t.Error("Stamp should fill exp and iss")
	}
}

func TestService_Rejects(t *testing.T) {
	svc := newService(t, Config{Secret: secret, Issuer: "billing"})
	other := newService(t, Config{Secret: strings.Repeat("x", 32), Issuer: "billing"})
	foreign, _ := other.Generate(&Claims{Role: RoleUser})

	expired := newService(t, Config{Secret: secret, Issuer: "billing", Leeway: time.Nanosecond})
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _ := expired.Generate(&Claims{Role: RoleUser})

	wrongIss := newService(t, Config{Secret: secret, Issuer: "someone"})
	iss, _ := wrongIss.Generate(&Claims{Role: RoleUser})

	for name, token := range map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": foreign,
		"expired":      old,
		"wrong issuer": iss,
	} {
		if _, err := svc.Parse(token); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{Secret: secret}, true},
		{"missing secret", Config{}, false},
		{"short secret", Config{Secret: "short"}, false},
		{"rsa", Config{Secret: secret, Method: "RS256"}, false},
	}
	for _, tt := range tests {
		cfg := tt.cfg
		cfg.ApplyDefaults()
		if err := cfg.Validate(); (err == nil) != tt.ok {
			t.Errorf("%s: err = %v", tt.name, err)
		}
	}
}

package jwt

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Role values carried in Claims.Role.
const (
	RoleUser   = "user"
	RoleIntake = "intake"
)

// Claims identifies a caller of the API. Subject is the user id.
type Claims struct {
	gojwt.RegisteredClaims
	Role string `json:"role"`
	// Tier is "free" or "paid" for end users.
	Tier string `json:"tier,omitempty"`
}

// Stamp fills the registered time, issuer and audience claims when unset.
func (c *Claims) Stamp(now time.Time, ttl time.Duration, issuer, audience string) {
	if c.IssuedAt == nil {
		c.IssuedAt = gojwt.NewNumericDate(now)
	}
	if c.ExpiresAt == nil {
		c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	if c.Issuer == "" {
		c.Issuer = issuer
	}
	if len(c.Audience) == 0 && audience != "" {
		c.Audience = gojwt.ClaimStrings{audience}
	}
}

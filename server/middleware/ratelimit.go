package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Rate uses limiter's formatted syntax, e.g. "30-M".
	Rate string `yaml:"rate" mapstructure:"rate"`
}

// ApplyDefaults fills zero fields.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.Rate == "" {
		c.Rate = "30-M"
	}
}

// Validate parses the rate.
func (c *RateLimitConfig) Validate() error {
	_, err := limiter.NewRateFromFormatted(c.Rate)
	return err
}

// KeyFunc extracts the limiter key.
type KeyFunc func(*gin.Context) string

// UserKey keys by authenticated user, falling back to the client IP.
func UserKey(c *gin.Context) string {
	if p, ok := PrincipalFrom(c); ok && p.UserID != "" {
		return "user:" + p.UserID
	}
	return "ip:" + c.ClientIP()
}

// RateLimit limits requests per key with an in-memory store. Store errors
// let the request through.
func RateLimit(cfg RateLimitConfig, key KeyFunc, log *logger.Logger) (gin.HandlerFunc, error) {
	cfg.ApplyDefaults()
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, err
	}
	if key == nil {
		key = UserKey
	}
	lim := limiter.New(memory.NewStore(), rate)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}
		k := key(c)
		res, err := lim.Get(c.Request.Context(), k)
		if err != nil {
			log.Warn("rate limiter unavailable", logger.ErrorFields("ratelimit", err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if res.Reached {
			retry := int(time.Until(time.Unix(res.Reset, 0)).Seconds())
			c.Header("Retry-After", strconv.Itoa(max(retry, 0)))
			abort(c, apperrors.RateLimited())
			return
		}
		c.Next()
	}, nil
}

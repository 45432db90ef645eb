package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
)

const principalKey = "principal"

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   string
	Tier   string
}

// TokenValidator turns a bearer token into a Principal.
type TokenValidator func(token string) (Principal, error)

// Auth requires a valid "Authorization: Bearer" token.
func Auth(validate TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abort(c, apperrors.Unauthorized("Bearer token required."))
			return
		}

		p, err := validate(token)
		if err != nil {
			abort(c, apperrors.Unauthorized("Invalid token.").WithCause(err))
			return
		}

		c.Set(principalKey, p)
		c.Set(logger.FieldUserID, p.UserID)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), p.UserID))
		c.Next()
	}
}

// RequireRole rejects callers without role. It must run after Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			abort(c, apperrors.Unauthorized(""))
			return
		}
		if p.Role != role {
			abort(c, apperrors.Forbidden("This endpoint requires the "+role+" role."))
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the caller stored by Auth.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func abort(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}

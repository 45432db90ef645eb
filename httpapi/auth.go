package httpapi

import (
	"errors"

	"github.com/kbukum/scribe/auth/jwt"
	"github.com/kbukum/scribe/jobs"
	"github.com/kbukum/scribe/server/middleware"
)

// TokenValidator adapts a JWT service to middleware.Auth. The subject is
// the user id; end-user tokens without a tier are treated as free.
func TokenValidator(svc *jwt.Service[*jwt.Claims]) middleware.TokenValidator {
	return func(token string) (middleware.Principal, error) {
		claims, err := svc.Parse(token)
		if err != nil {
			return middleware.Principal{}, err
		}
		if claims.Subject == "" && claims.Role != jwt.RoleIntake {
			return middleware.Principal{}, errors.New("token has no subject")
		}
		tier := claims.Tier
		if tier == "" {
			tier = string(jobs.TierFree)
		}
		return middleware.Principal{UserID: claims.Subject, Role: claims.Role, Tier: tier}, nil
	}
}

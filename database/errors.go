package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/scribe/errors"
)

// transientMarkers are driver error fragments (postgres and sqlite) after
// which the same statement can succeed.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"driver: bad connection",
	"too many connections",
	"deadlock",
	"lock timeout",
	"database is locked",
	"sqlite_busy",
}

// IsTransient reports whether err looks like a connectivity or lock failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsNotFoundError reports gorm.ErrRecordNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// FromDatabase maps a gorm error on resource to an AppError.
func FromDatabase(err error, resource string) *apperrors.AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(resource, "")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.New(apperrors.ErrCodeConflict, fmt.Sprintf("The %s already exists.", resource)).WithCause(err)
	case IsTransient(err):
		return apperrors.New(apperrors.ErrCodeServiceUnavailable, "Database is temporarily unavailable. Please try again.").
			WithDetail("resource", resource).
			WithCause(err)
	default:
		return apperrors.DatabaseError(err)
	}
}

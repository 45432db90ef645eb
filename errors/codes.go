package errors

import "net/http"

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"

	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeSignatureInvalid ErrorCode = "SIGNATURE_INVALID"

	// ErrCodeManualUploadRequired tells clients to ask the user for the file.
	ErrCodeManualUploadRequired ErrorCode = "MANUAL_UPLOAD_REQUIRED"
	ErrCodeJobCancelled         ErrorCode = "JOB_CANCELLED"
	ErrCodeNoSupplier           ErrorCode = "NO_SUPPLIER"

	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

type codeInfo struct {
	status    int
	retryable bool
}

var codes = map[ErrorCode]codeInfo{
	ErrCodeServiceUnavailable:   {http.StatusServiceUnavailable, true},
	ErrCodeTimeout:              {http.StatusGatewayTimeout, true},
	ErrCodeRateLimited:          {http.StatusTooManyRequests, true},
	ErrCodeNotFound:             {http.StatusNotFound, false},
	ErrCodeConflict:             {http.StatusConflict, false},
	ErrCodeInvalidInput:         {http.StatusBadRequest, false},
	ErrCodeMissingField:         {http.StatusBadRequest, false},
	ErrCodeUnauthorized:         {http.StatusUnauthorized, false},
	ErrCodeForbidden:            {http.StatusForbidden, false},
	ErrCodeSignatureInvalid:     {http.StatusUnauthorized, false},
	ErrCodeManualUploadRequired: {http.StatusUnprocessableEntity, false},
	ErrCodeJobCancelled:         {http.StatusConflict, false},
	ErrCodeNoSupplier:           {http.StatusUnprocessableEntity, false},
	ErrCodeInternal:             {http.StatusInternalServerError, false},
	ErrCodeDatabaseError:        {http.StatusInternalServerError, true},
}

// IsRetryableCode reports whether errors with code may succeed on retry.
func IsRetryableCode(code ErrorCode) bool {
	return codes[code].retryable
}

// StatusFor returns the HTTP status of code, 500 for unknown codes.
func StatusFor(code ErrorCode) int {
	if info, ok := codes[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

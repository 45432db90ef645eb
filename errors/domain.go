package errors

import "fmt"

// SignatureInvalid is returned when neither the provider signature header nor
// the callback token validates.
func SignatureInvalid(provider string) *AppError {
	return New(ErrCodeSignatureInvalid, "Webhook signature verification failed.").
		WithDetail("provider", provider)
}

// ManualUploadRequired marks a job whose source audio could not be resolved.
func ManualUploadRequired(jobID string, cause error) *AppError {
	return New(ErrCodeManualUploadRequired, "The source audio could not be fetched. Please upload the file directly.").
		WithDetail("job_id", jobID).
		WithCause(cause)
}

// JobCancelled is returned when a job was cancelled before work started.
func JobCancelled(jobID string) *AppError {
	return New(ErrCodeJobCancelled, fmt.Sprintf("Job %s was cancelled.", jobID)).
		WithDetail("job_id", jobID)
}

// NoSupplier is returned when the strategy selects no supplier.
func NoSupplier(reason string) *AppError {
	return New(ErrCodeNoSupplier, "No transcription supplier is available: "+reason)
}

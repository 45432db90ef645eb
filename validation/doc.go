// Package validation validates request and event structs with
// go-playground/validator and converts failures into AppErrors.
//
//	type PrepareRequest struct {
//	    JobID string `json:"job_id" validate:"required"`
//	    Tier  string `json:"user_tier" validate:"oneof=free paid"`
//	}
//	if err := validation.Validate(req); err != nil { ... }
package validation

// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, lowercase snake_case strings that clients branch on.
// Generic codes mirror HTTP status semantics; the workflow-specific ones
// name rejections that a status alone cannot convey (an empty cart is a
// conflict, but so is confirming a checkout that was never started).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "cart_empty",
//	  "message": "Your cart is empty."
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeCartEmpty        = "cart_empty"
	ErrCodePersistFailed    = "persist_failed"
	ErrCodeDeliverFailed    = "deliver_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// Package handlers – error codes
//
// This file lists the machine-readable codes used in ErrorResponse.
package handlers

// Error codes returned in ErrorResponse.Code.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeBadUpdate        = "bad_update"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"
	ErrCodeStatsFailed      = "stats_failed"
	ErrCodeDumpFailed       = "dump_failed"
)

// Package guard implements the submission-guard pipeline that every incoming
// sighting report must pass before it is persisted.
package guard

import "errors"

// Code classifies why a submission was refused.
type Code string

const (
	// CodeInvalidInput marks malformed or missing required fields.
	CodeInvalidInput Code = "invalid_input"
	// CodeRateLimited marks an abuse-prevention rejection.
	CodeRateLimited Code = "rate_limited"
	// CodeOutOfRange marks a geofence rejection.
	CodeOutOfRange Code = "out_of_range"
	// CodeContentRejected marks a photo the classifier declined.
	CodeContentRejected Code = "content_rejected"
	// CodeConflict marks a duplicate active report at the same location.
	CodeConflict Code = "conflict"
	// CodeUpstreamFailure marks a store or classifier outage; safe to retry later.
	CodeUpstreamFailure Code = "upstream_failure"
)

// Rejection is a refusal from the submission pipeline. Message is
// user-facing and actionable; Code tells the transport layer how to map it.
type Rejection struct {
	Code    Code
	Message string
	cause   error
}

func (r *Rejection) Error() string {
	return r.Message
}

func (r *Rejection) Unwrap() error {
	return r.cause
}

func reject(code Code, message string) *Rejection {
	return &Rejection{Code: code, Message: message}
}

func upstream(message string, cause error) *Rejection {
	return &Rejection{Code: CodeUpstreamFailure, Message: message, cause: cause}
}

// AsRejection extracts a Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

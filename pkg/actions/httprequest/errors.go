package httprequest

import "fmt"

// FailureKind distinguishes the three transport-level failure classes of an
// http-request action. Each surfaces with a distinct message on the step.
type FailureKind string

const (
	FailureTimeout          FailureKind = "timeout"
	FailureConnection       FailureKind = "connection_error"
	FailureUnexpectedStatus FailureKind = "unexpected_status"
)

// RequestError is a classified http-request failure.
type RequestError struct {
	Kind FailureKind
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("http request %s: %v", e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

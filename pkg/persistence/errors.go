package persistence

import "errors"

var (
	ErrAutomationNotFound   = errors.New("automation not found")
	ErrExecutionLogNotFound = errors.New("execution log not found")
	ErrAccountNotFound      = errors.New("account not found")
)

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound) ||
		errors.Is(err, ErrExecutionLogNotFound) ||
		errors.Is(err, ErrAccountNotFound)
}

package weather

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies upstream failures.
type FetchErrorKind int

const (
	// FetchNetwork covers transport failures, timeouts and an open circuit.
	FetchNetwork FetchErrorKind = iota
	// FetchStatus is a non-2xx upstream response.
	FetchStatus
	// FetchMalformed is a body that does not decode or lacks required fields.
	FetchMalformed
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchNetwork:
		return "network"
	case FetchStatus:
		return "status"
	case FetchMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// FetchError is returned by weather clients.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchStatus {
		return fmt.Sprintf("upstream %s error (%d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf reports the FetchErrorKind carried by err, if any.
func KindOf(err error) (FetchErrorKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

package teamsl

import (
	"errors"
	"fmt"
)

// ErrAuthentication marks login and session verification failures.
var ErrAuthentication = errors.New("teamsl: authentication failed")

type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("teamsl authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "teamsl authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuthentication
}

// FetchError is a failed upstream read. Status is zero for transport errors.
type FetchError struct {
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("teamsl %s: http %d: %s", e.Endpoint, e.Status, e.Body)
	}
	return fmt.Sprintf("teamsl %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

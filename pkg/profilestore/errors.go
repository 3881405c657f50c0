package profilestore

import (
	"errors"
	"fmt"
)

var (
	ErrProfileNotFound  = errors.New("profile does not exist")
	ErrProtectedProfile = errors.New("main profile can't be removed or updated")
	ErrInvalidProfile   = errors.New("invalid profile")

	// ErrInvalidState marks persisted state that failed validation.
	ErrInvalidState = errors.New("invalid profile store state")
	// ErrNoState is returned by backends that have nothing persisted yet.
	ErrNoState = errors.New("no persisted state")
)

// PolicyError reports a rejected mutation. It matches its Rule with errors.Is.
type PolicyError struct {
	Rule    error
	Profile string
	Reason  string
}

func (e *PolicyError) Error() string {
	msg := fmt.Sprintf("profile %q: %s", e.Profile, e.Rule)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *PolicyError) Unwrap() error {
	return e.Rule
}

func policyError(rule error, profile, reason string) error {
	return &PolicyError{Rule: rule, Profile: profile, Reason: reason}
}

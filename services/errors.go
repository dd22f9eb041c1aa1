package services

import "errors"

// Precondition and not-found errors surfaced to the HTTP layer. Handlers map
// these to 4xx; everything else is a 500.
var (
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	ErrChallengeInactive = errors.New("challenge is not active")
	ErrChallengeEnded    = errors.New("challenge has already ended")
	ErrChallengeFull     = errors.New("challenge has reached max participants")
	ErrAlreadyEnrolled   = errors.New("user already enrolled in this challenge")
	ErrInvalidChallenge  = errors.New("invalid challenge definition")
)

// IsPrecondition reports whether err is a clean precondition rejection rather
// than a processing failure.
func IsPrecondition(err error) bool {
	switch {
	case errors.Is(err, ErrChallengeInactive),
		errors.Is(err, ErrChallengeEnded),
		errors.Is(err, ErrChallengeFull),
		errors.Is(err, ErrAlreadyEnrolled),
		errors.Is(err, ErrInvalidChallenge):
		return true
	}
	return false
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrChallengeNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrEnrollmentNotFound)
}

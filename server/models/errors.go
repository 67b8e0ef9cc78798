package models

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Domain errors returned by this package. Handlers match on these with
// errors.Is and are solely responsible for mapping them to status codes.
var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrEmailInUse is returned when creating a user whose email is
	// already taken. The users.email unique index is the source of
	// truth, so two racing signups cannot both succeed.
	ErrEmailInUse = errors.New("email in use")

	// ErrAlreadyVerified is returned when a verification email is
	// requested for a user whose email is already verified.
	ErrAlreadyVerified = errors.New("verification has already been passed")

	// ErrDuplicateJob is returned when a job with the given name is
	// already enqueued or in progress.
	ErrDuplicateJob = errors.New("job with the given name already exists in queue")
)

// refineError swaps driver-level errors for the package's domain errors,
// so callers never have to import gorm to classify an outcome.
func refineError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	if isUniqueConstraintViolation(err) {
		return ErrEmailInUse
	}

	return err
}

func isUniqueConstraintViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrInvalidTransition  = errors.New("invalid request state transition")

	// Provider failures. Transient ones are retried by the dispatcher,
	// permanent ones are surfaced to the chat immediately.
	ErrProviderUnavailable = errors.New("translation provider unavailable")
	ErrProviderRateLimited = errors.New("translation provider rate limited")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrEmptyText           = errors.New("empty text")
	ErrTextTooLong         = errors.New("text exceeds maximum length")
	ErrTooManyTargets      = errors.New("too many target languages")

	// Store and scheduling failures.
	ErrStoreContention   = errors.New("concurrent session update conflict")
	ErrIngestionOverload = errors.New("update queue full")
	ErrChatBacklogFull   = errors.New("chat backlog full")
	ErrWorkerSaturated   = errors.New("worker queue full")
	ErrRequestExpired    = errors.New("request deadline exceeded")
)

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrProviderRateLimited) ||
		errors.Is(err, ErrWorkerSaturated)
}

// IsPermanent reports whether err must be surfaced without retrying.
// Exhausted store contention degrades to permanent for the single request.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrUnsupportedLanguage) ||
		errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrTextTooLong) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrStoreContention)
}

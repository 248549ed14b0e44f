package models

import "errors"

// Error taxonomy for commission processing. Note that a replayed ledger
// write is NOT an error: idempotent replays are reported as success through
// ProcessResult.AlreadyProcessed. ErrAlreadyExists covers other uniqueness
// conflicts, like onboarding the same partner twice.
var (
	// ErrPartnerNotFound means the calculation or credit target does not
	// exist. Non-retryable; callers skip instead of retrying.
	ErrPartnerNotFound = errors.New("partner not found")

	// ErrInvalidAmount means a negative gross amount was supplied.
	ErrInvalidAmount = errors.New("gross amount must be non-negative")

	// ErrAlreadyExists means a uniqueness constraint rejected a write,
	// e.g. onboarding a partner with an email already enrolled.
	ErrAlreadyExists = errors.New("already exists")

	// ErrTransientStore wraps network, timeout and contention failures
	// against the document store. Retryable with backoff; webhook
	// redelivery is expected to retry.
	ErrTransientStore = errors.New("transient store failure")

	// ErrDataIntegrity flags an impossible aggregate, e.g. total paid
	// exceeding total earned. Fatal to the read path; never clamped.
	ErrDataIntegrity = errors.New("data integrity violation")
)

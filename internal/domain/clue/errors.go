package clue

import "errors"

var (
	ErrClueNotFound = errors.New("clue not found")

	// ErrStorageWriteFailure means the unlock could not be recorded. The debit
	// has been refunded by the time a caller sees it.
	ErrStorageWriteFailure = errors.New("failed to record clue unlock")

	// ErrAlreadyUnlocked is returned by the repository on a duplicate insert.
	// The service turns it into a no-charge success.
	ErrAlreadyUnlocked = errors.New("clue already unlocked")

	ErrInternal = errors.New("internal error")
)

package area

import "errors"

var (
	// ErrStorageWriteFailure is returned when an area could not be persisted after retries
	ErrStorageWriteFailure = errors.New("failed to store search area")

	// ErrGenerationTaken means another writer already stored this generation index
	ErrGenerationTaken = errors.New("generation index already taken")

	ErrInternal = errors.New("internal error")
)

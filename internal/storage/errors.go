package storage

import (
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.StoreError("could not open address database").Fatal().Build()

	// ErrInitializeSchemaFailed indicates the schema could not be created.
	ErrInitializeSchemaFailed = errors.StoreError("failed to initialize address schema").Fatal().Build()

	// ErrQueryFailed indicates a read failed.
	ErrQueryFailed = errors.StoreError("failed to query address records").Build()

	// ErrWriteFailed indicates an insert or update failed.
	ErrWriteFailed = errors.StoreError("failed to write address record").Build()
)

// wrap attaches the operation and cause to one of the sentinels above.
func wrap(sentinel *errors.ClassifiedError, op string, cause error) error {
	return errors.WrapError(cause, sentinel.Category(), sentinel.Message()).
		WithSeverity(sentinel.Severity()).
		WithRetry(sentinel.RetryStrategy()).
		WithContext("operation", op).
		Build()
}

package eventstore

// Sentinel errors for event store operations. Callers decorate them with
// WithCause/WithContext so the HTTP layer can map them to status codes.

import (
	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.StorageError("could not open event store database").Fatal().Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.StorageError("failed to initialize event store schema").Fatal().Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = errors.StorageError("failed to append event to store").Build()

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = errors.StorageError("failed to query events from store").Build()

	// ErrEventScanFailed indicates scanning event rows failed.
	ErrEventScanFailed = errors.StorageError("failed to scan event rows").Build()

	// ErrClearFailed indicates the bulk delete failed.
	ErrClearFailed = errors.StorageError("failed to clear event store").Build()

	// ErrMarshalHeadersFailed indicates JSON marshaling of captured headers failed.
	ErrMarshalHeadersFailed = errors.StorageError("failed to marshal event headers").Build()

	// ErrUnmarshalHeadersFailed indicates stored headers could not be decoded.
	ErrUnmarshalHeadersFailed = errors.StorageError("failed to unmarshal event headers").Build()

	ErrEventNotFound = errors.NotFoundError("webhook not found").Build()
)

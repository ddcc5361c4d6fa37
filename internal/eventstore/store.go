package eventstore

import (
	"context"
)

// DefaultLimit is the page size used when a query does not name one.
const DefaultLimit = 20

// Query selects a page of events, newest first.
type Query struct {
	Offset int
	Limit  int
	// Search is a whitespace separated list of terms; every term must match.
	Search string
}

// Normalized returns q with defaults applied. Limit has no upper bound.
func (q Query) Normalized() Query {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// Page is the result of a Query.
type Page struct {
	Events []Event
	// Total is the table size, or the number of matching events when searching.
	Total   int64
	HasMore bool
}

// Store defines the interface for persisting and retrieving captured events.
type Store interface {
	// Append stores a new event and returns it with its assigned id and timestamp.
	Append(ctx context.Context, headers Headers, body string) (Event, error)

	// Query returns a page of events ordered by timestamp then id, newest first.
	Query(ctx context.Context, q Query) (Page, error)

	// Get retrieves a single event by id.
	Get(ctx context.Context, id int64) (Event, error)

	// All returns every stored event, newest first.
	All(ctx context.Context) ([]Event, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) (int64, error)

	// Clear deletes every event and returns how many were removed.
	Clear(ctx context.Context) (int64, error)

	// Ping checks the database is reachable.
	Ping(ctx context.Context) error

	// Optimize runs housekeeping on the underlying database.
	Optimize(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// Package errors provides the classified error primitives used across the webhook catcher.
//
// Every failure that reaches an HTTP client or the CLI is a ClassifiedError whose category decides
// how it is presented:
//   - validation: malformed input (400)
//   - auth: missing or wrong admin token / browse password (401 with challenge)
//   - not_found: unknown event id (404)
//   - upstream: a downstream receiver failed during replay or self-test (500)
//   - storage: the event store failed (500)
//
// Example usage:
//
//	err := errors.ValidationError("invalid target URL").
//		WithContext("target_url", raw).
//		Build()
package errors

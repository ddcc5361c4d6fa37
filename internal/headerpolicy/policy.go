// Package headerpolicy decides which captured headers are treated specially
// when events leave the service: redacted in listings, dropped on relay or replay.
package headerpolicy

import (
	"strings"

	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/util/sets"
)

// RedactedValue replaces sensitive header values in listings.
const RedactedValue = "***REDACTED***"

// DefaultSensitive lists the headers that carry credentials by default.
var DefaultSensitive = []string{"authorization", "cookie", "x-api-key", "api-key"}

// ConnectionScoped lists headers that describe the original connection and
// must not be copied onto a new request.
var ConnectionScoped = []string{"host", "content-length", "connection"}

// Policy is a case-insensitive set of header names.
type Policy struct {
	names sets.Set[string]
}

// NewPolicy builds a policy from header names. Names are trimmed and lower-cased; blanks are ignored.
func NewPolicy(names ...string) Policy {
	s := sets.New[string]()
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			s.Add(n)
		}
	}
	return Policy{names: s}
}

// Sensitive returns the default sensitive policy extended with extra names.
func Sensitive(extra ...string) Policy {
	return NewPolicy(append(append([]string{}, DefaultSensitive...), extra...)...)
}

// Connection returns the connection-scoped policy used by replay.
func Connection() Policy {
	return NewPolicy(ConnectionScoped...)
}

// Matches reports whether name belongs to the policy.
func (p Policy) Matches(name string) bool {
	if p.names == nil {
		return false
	}
	return p.names.Has(strings.ToLower(name))
}

// Names returns the sorted member names.
func (p Policy) Names() []string {
	return sets.Sorted(p.names)
}

// Redact returns a copy of headers with matching values replaced by RedactedValue.
func (p Policy) Redact(headers eventstore.Headers) eventstore.Headers {
	out := make(eventstore.Headers, len(headers))
	for i, h := range headers {
		out[i] = h
		if p.Matches(h.Name) {
			out[i].Value = RedactedValue
		}
	}
	return out
}

// Strip returns a copy of headers without the matching names.
func (p Policy) Strip(headers eventstore.Headers) eventstore.Headers {
	out := make(eventstore.Headers, 0, len(headers))
	for _, h := range headers {
		if !p.Matches(h.Name) {
			out = append(out, h)
		}
	}
	return out
}

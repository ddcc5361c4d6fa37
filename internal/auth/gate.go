// Package auth implements the two access gates of the service: an admin
// token for destructive operations and a shared password for browsing.
// A gate without a configured secret lets every request through.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
)

// AdminTokenHeader and AdminTokenParam carry the admin credential.
const (
	AdminTokenHeader = "X-Admin-Token"
	AdminTokenParam  = "admin_token"
)

// Realm is the HTTP Basic realm announced by the password gate.
const Realm = "webhookcatcher"

// Gate decides whether a request may proceed.
type Gate interface {
	// Name identifies the gate in logs and metrics.
	Name() string
	// Enabled reports whether a secret is configured.
	Enabled() bool
	// Authorize checks the request credentials. Disabled gates always authorize.
	Authorize(r *http.Request) bool
	// Challenge is the WWW-Authenticate value sent on failure.
	Challenge() string
	// Message is the error text sent on failure.
	Message() string
}

// AdminGate accepts the admin token from a header or query parameter.
type AdminGate struct {
	token string
}

// NewAdminGate creates the admin gate. A blank token disables it.
func NewAdminGate(token string) *AdminGate {
	if strings.TrimSpace(token) == "" {
		token = ""
	}
	return &AdminGate{token: token}
}

func (g *AdminGate) Name() string      { return "admin" }
func (g *AdminGate) Enabled() bool     { return g.token != "" }
func (g *AdminGate) Challenge() string { return "Bearer" }
func (g *AdminGate) Message() string {
	return "Admin token required. Set X-Admin-Token header or admin_token query parameter."
}

// Authorize checks the X-Admin-Token header first, then the admin_token query parameter.
func (g *AdminGate) Authorize(r *http.Request) bool {
	if !g.Enabled() {
		return true
	}
	if secretEqual(r.Header.Get(AdminTokenHeader), g.token) {
		return true
	}
	return secretEqual(r.URL.Query().Get(AdminTokenParam), g.token)
}

// PasswordGate accepts HTTP Basic credentials; only the password is checked.
type PasswordGate struct {
	password string
}

// NewPasswordGate creates the browse gate. A blank password disables it.
func NewPasswordGate(password string) *PasswordGate {
	if strings.TrimSpace(password) == "" {
		password = ""
	}
	return &PasswordGate{password: password}
}

func (g *PasswordGate) Name() string      { return "password" }
func (g *PasswordGate) Enabled() bool     { return g.password != "" }
func (g *PasswordGate) Challenge() string { return `Basic realm="` + Realm + `"` }
func (g *PasswordGate) Message() string   { return "Authentication required" }

func (g *PasswordGate) Authorize(r *http.Request) bool {
	if !g.Enabled() {
		return true
	}
	_, password, ok := r.BasicAuth()
	return ok && secretEqual(password, g.password)
}

// secretEqual compares in constant time. Empty input never matches.
func secretEqual(given, want string) bool {
	if given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

// WarnIfOpen logs a warning for every gate left without a secret.
func WarnIfOpen(logger *slog.Logger, gates ...Gate) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, g := range gates {
		if !g.Enabled() {
			logger.Warn("Access gate has no secret configured; requests are not authenticated", logfields.Gate(g.Name()))
		}
	}
}

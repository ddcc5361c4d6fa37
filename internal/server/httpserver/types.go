package httpserver

import (
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/metrics"
	"git.home.luguber.info/inful/webhookcatcher/internal/server/handlers"
)

// Dependencies are the collaborators the HTTP layer is wired to.
type Dependencies struct {
	Store    eventstore.Store
	Capturer handlers.Capturer
	Replayer handlers.Replayer

	// Optional: metrics recorder and the registry served on /metrics.
	Recorder metrics.Recorder
	Registry *prometheus.Registry
}

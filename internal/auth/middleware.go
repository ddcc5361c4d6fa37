package auth

import (
	"net/http"

	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/metrics"
)

// Require returns chi-compatible middleware rejecting requests the gate does not authorize.
func Require(g Gate, adapter *errors.HTTPErrorAdapter, recorder metrics.Recorder) func(http.Handler) http.Handler {
	if adapter == nil {
		adapter = errors.NewHTTPErrorAdapter(nil)
	}
	recorder = metrics.OrNoop(recorder)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.Authorize(r) {
				next.ServeHTTP(w, r)
				return
			}
			recorder.IncAuthFailure(g.Name())
			err := errors.AuthError(g.Message()).
				WithChallenge(g.Challenge()).
				WithContext("gate", g.Name()).
				Build()
			adapter.WriteErrorResponse(w, r, err)
		})
	}
}

package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultError    ResultLabel = "error"
	ResultDisabled ResultLabel = "disabled"
)

// Recorder defines observability hooks for the capture and replay paths. Implementations
// may forward to Prometheus or elsewhere. NoopRecorder is the default.
type Recorder interface {
	IncCapture(result ResultLabel)
	ObserveForward(result ResultLabel, d time.Duration)
	ObserveReplay(result ResultLabel, d time.Duration)
	IncAuthFailure(gate string)
	IncNotify(result ResultLabel)
	SetStoredEvents(n int64)
	IncStoredEvents()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncCapture(ResultLabel)                    {}
func (NoopRecorder) ObserveForward(ResultLabel, time.Duration) {}
func (NoopRecorder) ObserveReplay(ResultLabel, time.Duration)  {}
func (NoopRecorder) IncAuthFailure(string)                     {}
func (NoopRecorder) IncNotify(ResultLabel)                     {}
func (NoopRecorder) SetStoredEvents(int64)                     {}
func (NoopRecorder) IncStoredEvents()                          {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

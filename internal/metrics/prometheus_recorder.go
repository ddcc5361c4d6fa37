package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "webhookcatcher"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	captures        *prom.CounterVec
	forwardDuration *prom.HistogramVec
	replayDuration  *prom.HistogramVec
	authFailures    *prom.CounterVec
	notifications   *prom.CounterVec
	storedEvents    prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.captures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Captured webhooks by persistence result",
		}, []string{"result"})
		pr.forwardDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "forward_duration_seconds",
			Help:      "Duration of relays to the forwarding target",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.replayDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "replay_duration_seconds",
			Help:      "Duration of manual replays",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.authFailures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected requests by access gate",
		}, []string{"gate"})
		pr.notifications = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Capture notifications published by result",
		}, []string{"result"})
		pr.storedEvents = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_events",
			Help:      "Number of events currently held in the store",
		})
		reg.MustRegister(pr.captures, pr.forwardDuration, pr.replayDuration, pr.authFailures, pr.notifications, pr.storedEvents)
	})
	return pr
}

func (p *PrometheusRecorder) IncCapture(result ResultLabel) {
	if p == nil || p.captures == nil {
		return
	}
	p.captures.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveForward(result ResultLabel, d time.Duration) {
	if p == nil || p.forwardDuration == nil {
		return
	}
	p.forwardDuration.WithLabelValues(string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveReplay(result ResultLabel, d time.Duration) {
	if p == nil || p.replayDuration == nil {
		return
	}
	p.replayDuration.WithLabelValues(string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncAuthFailure(gate string) {
	if p == nil || p.authFailures == nil {
		return
	}
	p.authFailures.WithLabelValues(gate).Inc()
}

func (p *PrometheusRecorder) IncNotify(result ResultLabel) {
	if p == nil || p.notifications == nil {
		return
	}
	p.notifications.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetStoredEvents(n int64) {
	if p == nil || p.storedEvents == nil {
		return
	}
	p.storedEvents.Set(float64(n))
}

// IncStoredEvents bumps the stored-event gauge after a successful append. The
// maintenance job resets it from the table count.
func (p *PrometheusRecorder) IncStoredEvents() {
	if p == nil || p.storedEvents == nil {
		return
	}
	p.storedEvents.Inc()
}

package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"xdao.co/hermes/account"
	"xdao.co/hermes/outcome"
)

// Metrics holds the client's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hermes",
			Subsystem: "client",
			Name:      "calls_total",
			Help:      "Account service calls by method, binding and outcome.",
		}, []string{"method", "binding", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hermes",
			Subsystem: "client",
			Name:      "call_duration_seconds",
			Help:      "Latency of account service calls that reached the binding.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "binding"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.calls, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(op account.Op, binding string, o outcome.Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "success"
	if o.Err != nil {
		label = string(o.Err.Kind)
	}
	m.calls.WithLabelValues(op.String(), binding, label).Inc()
	if o.Err == nil || o.Err.Kind != outcome.KindInvalidArgument {
		m.duration.WithLabelValues(op.String(), binding).Observe(elapsed.Seconds())
	}
}

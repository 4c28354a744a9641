package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK           = "ok"
	resultUnknownState = "unknown_state"
	resultHandlerError = "handler_error"
	resultStoreError   = "store_error"
)

// Metrics instruments message dispatch. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	handled  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the dispatch collectors and registers them on reg when
// it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatloop",
			Name:      "messages_handled_total",
			Help:      "Messages dispatched, labeled by outcome.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chatloop",
			Name:      "handler_duration_seconds",
			Help:      "Step handler execution time.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.handled, m.duration)
	}
	return m
}

func (m *Metrics) observe(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.handled.WithLabelValues(result).Inc()
	if elapsed > 0 {
		m.duration.Observe(elapsed.Seconds())
	}
}

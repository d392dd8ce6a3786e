package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// OutcomeSuccess labels a capture or mitigation that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels a failed capture or mitigation.
	OutcomeError = "error"
	// OutcomeStale labels a capture whose result arrived after a newer one started.
	OutcomeStale = "stale"
)

var (
	capturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fwpanel",
			Name:      "captures_total",
			Help:      "Capture cycles handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	captureDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fwpanel",
			Name:      "capture_seconds",
			Help:      "Round-trip latency of capture-and-classify requests.",
			Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 45, 60, 90},
		},
	)

	threatsDetectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fwpanel",
			Name:      "threats_detected_total",
			Help:      "Packets classified as threats across applied capture cycles.",
		},
	)

	mitigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fwpanel",
			Name:      "mitigations_total",
			Help:      "Drop-packets requests, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches fwpanel collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		capturesTotal,
		captureDurationSeconds,
		threatsDetectedTotal,
		mitigationsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveCapture records a capture duration, outcome label and threat count.
func ObserveCapture(duration time.Duration, outcome string, threats int) {
	switch outcome {
	case OutcomeError, OutcomeStale:
	default:
		outcome = OutcomeSuccess
	}
	capturesTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	captureDurationSeconds.Observe(duration.Seconds())
	if outcome == OutcomeSuccess && threats > 0 {
		threatsDetectedTotal.Add(float64(threats))
	}
}

// ObserveMitigation records a drop-packets outcome.
func ObserveMitigation(ok bool) {
	label := OutcomeSuccess
	if !ok {
		label = OutcomeError
	}
	mitigationsTotal.WithLabelValues(label).Inc()
}

// Handler serves the collectors registered on reg.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

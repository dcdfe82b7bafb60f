package webhook

import "github.com/prometheus/client_golang/prometheus"

var eventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "voice_gateway",
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Provider webhook events by normalized type and outcome",
	},
	[]string{"type", "outcome"}, // outcome: ok, error, rejected
)

var processDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "voice_gateway",
		Subsystem: "webhook",
		Name:      "process_seconds",
		Help:      "Time spent processing one webhook event",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"type"},
)

func init() {
	prometheus.MustRegister(eventsTotal, processDuration)
}

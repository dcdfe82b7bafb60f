package sentiment

import "github.com/prometheus/client_golang/prometheus"

var classifyLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "voice_gateway",
		Subsystem: "sentiment",
		Name:      "model_latency_seconds",
		Help:      "Latency of model-backed classification calls",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10, 15},
	},
	[]string{"model", "status"},
)

var classifyTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "voice_gateway",
		Subsystem: "sentiment",
		Name:      "classifications_total",
		Help:      "Classifications by source; fallback means the keyword path answered for the model",
	},
	[]string{"source"}, // model, fallback
)

func init() {
	prometheus.MustRegister(classifyLatency)
	prometheus.MustRegister(classifyTotal)
}

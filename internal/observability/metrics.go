package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveConversations prometheus.Gauge
	Messages            *prometheus.CounterVec
	ScamDetections      *prometheus.CounterVec
	CollectorEvents     *prometheus.CounterVec
	StreamClients       prometheus.Gauge
	Confidence          prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Number of tracked decoy conversations.",
		}),
		Messages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Processed inbound messages by verdict.",
		}, []string{"verdict"}),
		ScamDetections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scam_detections_total",
			Help:      "Scam verdicts by category.",
		}, []string{"category"}),
		CollectorEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collector_events_total",
			Help:      "Collector dispatch events by outcome.",
		}, []string{"event"}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected live-stream websocket clients.",
		}),
		Confidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_confidence",
			Help:      "Classifier confidence per processed message.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.45, 0.6, 0.75, 0.9, 1.0},
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

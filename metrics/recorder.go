package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bassamadnan/veil/api"
)

// Recorder holds the classifier client collectors on a private registry.
// It implements api.Observer.
type Recorder struct {
	registry *prometheus.Registry

	Requests    *prometheus.CounterVec
	Latency     *prometheus.HistogramVec
	Predictions *prometheus.CounterVec
	Confidence  prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veil_api_requests_total",
				Help: "Classifier API calls by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "veil_api_request_duration_seconds",
				Help:    "Classifier API call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veil_predictions_total",
				Help: "Predictions received by label",
			},
			[]string{"label"},
		),
		Confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "veil_prediction_confidence",
			Help:    "Confidence of received predictions",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
	r.registry.MustRegister(
		r.Requests,
		r.Latency,
		r.Predictions,
		r.Confidence,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	r.Requests.WithLabelValues(endpoint, outcome).Inc()
	r.Latency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (r *Recorder) ObservePrediction(label api.Label, confidence float64) {
	r.Predictions.WithLabelValues(string(label)).Inc()
	r.Confidence.Observe(confidence)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

var _ api.Observer = (*Recorder)(nil)

// Package metrics holds the Prometheus instruments for the lookup form and
// the recommendation endpoint.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes.
const (
	OutcomeResults = "results"
	OutcomeEmpty   = "empty"
	OutcomeFailed  = "failed"
	OutcomeStale   = "stale"
	OutcomeBlocked = "blocked"
)

var (
	LookupSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_submissions_total",
			Help: "Form submissions by outcome",
		},
		[]string{"outcome"},
	)

	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Requests served by the recommend endpoint by status code",
		},
		[]string{"status"},
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Time spent ranking products for one request",
			Buckets: prometheus.DefBuckets,
		},
	)

	ModelTrainings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_trainings_total",
			Help: "Model training runs by result",
		},
		[]string{"result"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookup_sessions_active",
			Help: "Lookup form sessions held in memory",
		},
	)
)

// RecordLookup counts one form submission outcome.
func RecordLookup(outcome string) {
	LookupSubmissions.WithLabelValues(outcome).Inc()
}

// RecordRecommend counts one endpoint response and observes its duration.
func RecordRecommend(status string, d time.Duration) {
	RecommendRequests.WithLabelValues(status).Inc()
	RecommendDuration.Observe(d.Seconds())
}

// RecordTraining counts a training run; err decides the result label.
func RecordTraining(err error) {
	if err != nil {
		ModelTrainings.WithLabelValues("error").Inc()
		return
	}
	ModelTrainings.WithLabelValues("success").Inc()
}

// Handler exposes the default registry in Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

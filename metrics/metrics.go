package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ScoreRequestsTotal counts severity scoring calls by backend and outcome.
	ScoreRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_report",
		Subsystem: "scorer",
		Name:      "requests_total",
		Help:      "Total number of wound severity scoring calls, labeled by source and result.",
	}, []string{"source", "result"})

	// ScoreDurationSeconds is the time spent waiting for the external model.
	ScoreDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "health_report",
		Subsystem: "scorer",
		Name:      "duration_seconds",
		Help:      "Time to score a wound image, including encoding and the upstream call.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"source"})

	// ReportsTotal counts report submissions by final state.
	ReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_report",
		Subsystem: "reports",
		Name:      "submissions_total",
		Help:      "Total number of report submissions, labeled by result.",
	}, []string{"result"})

	// ImagesRenderedTotal counts report card renders by format and outcome.
	ImagesRenderedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_report",
		Subsystem: "reports",
		Name:      "images_rendered_total",
		Help:      "Total number of report card renders, labeled by format and result.",
	}, []string{"format", "result"})

	// UploadsRejectedTotal counts multipart files refused at the upload boundary.
	UploadsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "health_report",
		Subsystem: "uploads",
		Name:      "rejected_total",
		Help:      "Total number of uploaded files rejected, labeled by reason.",
	}, []string{"reason"})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ScoreRequestsTotal,
			ScoreDurationSeconds,
			ReportsTotal,
			ImagesRenderedTotal,
			UploadsRejectedTotal,
		)
	})
}

// Result turns an error into a short metric label.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

// MetricsRecorder observes service operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// ReportRecorder is optionally implemented by recorders that track validation results.
type ReportRecorder interface {
	ObserveReport(ctx context.Context, report domain.Report)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// PrometheusRecorder exports operation counts, latencies and the latest
// validation issue counts.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	issues     *prometheus.GaugeVec
}

// NewPrometheusRecorder registers the timetable collectors with reg. A nil
// registerer leaves the collectors unregistered.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	rec := &PrometheusRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Name:      "operations_total",
			Help:      "Core operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "timetable",
			Name:      "operation_duration_seconds",
			Help:      "Core operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		issues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "timetable",
			Name:      "validation_issues",
			Help:      "Issues found by the latest validation run.",
		}, []string{"level"}),
	}
	if reg == nil {
		return rec, nil
	}
	for _, c := range []prometheus.Collector{rec.operations, rec.durations, rec.issues} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveReport implements ReportRecorder.
func (r *PrometheusRecorder) ObserveReport(_ context.Context, report domain.Report) {
	for _, level := range []domain.Level{domain.LevelError, domain.LevelWarning, domain.LevelInfo} {
		r.issues.WithLabelValues(string(level)).Set(float64(report.Count(level)))
	}
}

// Collectors exposes the underlying collectors for tests.
func (r *PrometheusRecorder) Collectors() (operations *prometheus.CounterVec, issues *prometheus.GaugeVec) {
	return r.operations, r.issues
}

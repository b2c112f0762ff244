// Package metrics exposes Prometheus collectors for the SAR workflow.
package metrics

import (
	"errors"
	"time"

	"github.com/banking/sar-workbench/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sar_workbench"

// Metrics holds the workflow collectors
type Metrics struct {
	// Committed audit actions by type
	ActionsTotal *prometheus.CounterVec
	// Rejected operations by reason
	RejectionsTotal *prometheus.CounterVec
	// Operation latency
	OperationDuration *prometheus.HistogramVec
	// Open sessions
	ActiveSessions prometheus.Gauge
	// Failed mirror writes by sink
	SinkFailuresTotal *prometheus.CounterVec
}

// New creates the collectors without registering them
func New() *Metrics {
	return &Metrics{
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_actions_total",
			Help:      "Audit events appended, by action",
		}, []string{"action"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_operations_total",
			Help:      "Workflow operations rejected before commit",
		}, []string{"operation", "reason"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Workflow operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of open workbench sessions",
		}),
		SinkFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Audit mirror writes that failed, by sink",
		}, []string{"sink"}),
	}
}

// Register registers all collectors with reg
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.ActionsTotal,
		m.RejectionsTotal,
		m.OperationDuration,
		m.ActiveSessions,
		m.SinkFailuresTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordAction counts a committed audit event.
func (m *Metrics) RecordAction(action domain.ActionType) {
	m.ActionsTotal.WithLabelValues(string(action)).Inc()
}

// RecordRejection counts a failed operation, labelled by its error class.
func (m *Metrics) RecordRejection(operation string, err error) {
	m.RejectionsTotal.WithLabelValues(operation, Reason(err)).Inc()
}

// ObserveOperation records how long an operation took.
func (m *Metrics) ObserveOperation(operation string, started time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// RecordSinkFailure counts a failed mirror write.
func (m *Metrics) RecordSinkFailure(sink string) {
	m.SinkFailuresTotal.WithLabelValues(sink).Inc()
}

// Reason maps a workflow error to a low-cardinality label.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, domain.ErrPreconditionFailed):
		return "precondition_failed"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

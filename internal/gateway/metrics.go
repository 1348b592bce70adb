package gateway

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/eva/internal/domain"
	"github.com/roach88/eva/internal/errs"
)

const (
	metricsNamespace = "eva"
	metricsSubsystem = "gateway"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeRefused = "refused"
	OutcomeError   = "error"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	// OperationsTotal counts calls.
	// Labels: operation (add_task, ...), outcome (success, refused, error)
	OperationsTotal *prometheus.CounterVec

	// OperationSeconds measures call latency.
	// Labels: operation
	OperationSeconds *prometheus.HistogramVec
}

// NewMetrics registers the gateway collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operations_total",
			Help:      "Gateway operations by outcome",
		}, []string{"operation", "outcome"}),
		OperationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operation_duration_seconds",
			Help:      "Gateway operation latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case errs.Is(err, errs.KindInvariant):
		outcome = OutcomeRefused
	default:
		outcome = OutcomeError
	}
	m.OperationsTotal.WithLabelValues(op, outcome).Inc()
	m.OperationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Instrumented decorates a Gateway with Metrics.
type Instrumented struct {
	next    Gateway
	metrics *Metrics
}

var _ Gateway = (*Instrumented)(nil)

// Instrument wraps g so every call is counted and timed.
func Instrument(g Gateway, m *Metrics) *Instrumented {
	return &Instrumented{next: g, metrics: m}
}

func (i *Instrumented) AddTask(ctx context.Context, t domain.NewTask) (_ domain.Task, err error) {
	start := time.Now()
	defer func() { i.metrics.observe("add_task", start, err) }()
	return i.next.AddTask(ctx, t)
}

func (i *Instrumented) DeleteTask(ctx context.Context, id domain.ID) (err error) {
	start := time.Now()
	defer func() { i.metrics.observe("delete_task", start, err) }()
	return i.next.DeleteTask(ctx, id)
}

func (i *Instrumented) UpdateTask(ctx context.Context, t domain.Task) (err error) {
	start := time.Now()
	defer func() { i.metrics.observe("update_task", start, err) }()
	return i.next.UpdateTask(ctx, t)
}

func (i *Instrumented) AllTasks(ctx context.Context) (_ []domain.Task, err error) {
	start := time.Now()
	defer func() { i.metrics.observe("all_tasks", start, err) }()
	return i.next.AllTasks(ctx)
}

func (i *Instrumented) AllTasksPerTimeSegment(ctx context.Context) (_ []domain.SegmentTasks, err error) {
	start := time.Now()
	defer func() { i.metrics.observe("all_tasks_per_time_segment", start, err) }()
	return i.next.AllTasksPerTimeSegment(ctx)
}

func (i *Instrumented) AddTimeSegment(ctx context.Context, s domain.NewTimeSegment) (_ domain.TimeSegment, err error) {
	start := time.Now()
	defer func() { i.metrics.observe("add_time_segment", start, err) }()
	return i.next.AddTimeSegment(ctx, s)
}

func (i *Instrumented) UpdateTimeSegment(ctx context.Context, s domain.TimeSegment) (err error) {
	start := time.Now()
	defer func() { i.metrics.observe("update_time_segment", start, err) }()
	return i.next.UpdateTimeSegment(ctx, s)
}

func (i *Instrumented) DeleteTimeSegment(ctx context.Context, s domain.TimeSegment) (err error) {
	start := time.Now()
	defer func() { i.metrics.observe("delete_time_segment", start, err) }()
	return i.next.DeleteTimeSegment(ctx, s)
}

func (i *Instrumented) AllTimeSegments(ctx context.Context) (_ []domain.TimeSegment, err error) {
	start := time.Now()
	defer func() { i.metrics.observe("all_time_segments", start, err) }()
	return i.next.AllTimeSegments(ctx)
}

func (i *Instrumented) Close() error {
	return i.next.Close()
}

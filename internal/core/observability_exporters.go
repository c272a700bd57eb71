package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

var expvarSeq uint64

// ExpvarMetricsRecorder aggregates operation timings and outcome counters and
// publishes them through expvar. It suits deployments that want process-local
// metrics without a scrape endpoint. Totals are kept in milliseconds per
// operation.
type ExpvarMetricsRecorder struct {
	name     string
	mu       sync.Mutex
	totalsMS map[string]float64
	outcomes map[string]map[string]int64
}

// ExpvarMetricsSnapshot is a read-only view of the aggregated metrics.
type ExpvarMetricsSnapshot struct {
	Results     map[string]map[string]int64 `json:"results_total"`
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, generating a
// unique export name when name is empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("casefile_service_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{
		name:     name,
		totalsMS: make(map[string]float64),
		outcomes: make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(rec.export))
	return rec
}

func (r *ExpvarMetricsRecorder) export() any { return r.Snapshot() }

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	results := make(map[string]map[string]int64, len(r.outcomes))
	for op, counts := range r.outcomes {
		results[op] = maps.Clone(counts)
	}
	return ExpvarMetricsSnapshot{
		RecordedAt:  time.Now().UTC(),
		Results:     results,
		DurationsMS: maps.Clone(r.totalsMS),
	}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return // unnamed operations carry no signal
	}
	status := statusLabel(success)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalsMS[operation] += float64(duration) / float64(time.Millisecond)
	if r.outcomes[operation] == nil {
		r.outcomes[operation] = make(map[string]int64, 2)
	}
	r.outcomes[operation][status]++
}

// PrometheusMetricsRecorder exports operation durations as a Prometheus
// histogram labeled by operation and outcome. Register it alongside promhttp
// to surface service metrics on /metrics.
type PrometheusMetricsRecorder struct {
	durations *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder constructs a recorder registered with the
// provided registerer (the default registerer when nil).
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "casefile",
		Subsystem: "service",
		Name:      "operation_duration_seconds",
		Help:      "Duration of service operations partitioned by outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	if err := reg.Register(vec); err != nil {
		return nil, err
	}
	return &PrometheusMetricsRecorder{durations: vec}, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.durations.WithLabelValues(operation, statusLabel(success)).Observe(duration.Seconds())
}

// JSONTraceEntry is one completed span as emitted by JSONTraceTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS float64   `json:"duration_ms"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// JSONTraceTracer writes finished spans as JSON lines and retains them for
// inspection. Useful in smoke tests and local debugging.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	out     *json.Encoder
}

// NewJSONTracer returns a tracer writing to w; a nil writer only retains.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{}
	if w != nil {
		t.out = json.NewEncoder(w)
	}
	return t
}

// Entries copies all recorded spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.entries)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{owner: t, operation: operation, startedAt: time.Now().UTC()}
}

func (t *JSONTraceTracer) record(entry JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if t.out != nil {
		_ = t.out.Encode(entry)
	}
}

type jsonTraceSpan struct {
	owner     *JSONTraceTracer
	operation string
	startedAt time.Time
}

func (s *jsonTraceSpan) End(err error) {
	ended := time.Now().UTC()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		StartedAt:  s.startedAt,
		EndedAt:    ended,
		DurationMS: float64(ended.Sub(s.startedAt)) / float64(time.Millisecond),
		Status:     statusLabel(err == nil),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.owner.record(entry)
}

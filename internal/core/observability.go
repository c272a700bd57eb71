package core

import (
	"casefile/pkg/domain"
	"context"
	"time"
)

// Logger captures the minimal structured logging surface used by the service.
// Implementations receive alternating key/value pairs after the message.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies the service's notion of now.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface. A nil function
// falls back to the system clock in UTC.
type ClockFunc func() time.Time

// Now returns the function's time converted to UTC, or the system UTC time
// when the function is nil.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// AuditStatus marks an audit entry as a success or an error.
type AuditStatus string

const (
	// AuditStatusSuccess marks an operation that completed.
	AuditStatusSuccess AuditStatus = "success"
	// AuditStatusError marks an operation that returned an error.
	AuditStatusError AuditStatus = "error"
)

// AuditEntry captures the outcome of a single service operation.
type AuditEntry struct {
	Operation string        `json:"operation"`
	Entity    EntityType    `json:"entity"`
	Action    Action        `json:"action"`
	EntityID  string        `json:"entity_id,omitempty"`
	Actor     string        `json:"actor,omitempty"`
	Status    AuditStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// AuditRecorder receives audit entries for storage or forwarding.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// MetricsRecorder observes operation outcomes for aggregation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan finishes a started span.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

type noopSpan struct{}

func (noopSpan) End(error) {}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

// ServiceOption customizes service construction.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	logger   Logger
	clock    Clock
	clockSet bool
	audit    AuditRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	blobs    BlobStore
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  noopLogger{},
		clock:   ClockFunc(nil),
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
}

// WithLogger injects a logger. Nil loggers are ignored.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger == nil {
			return
		}
		o.logger = logger
	}
}

// WithClock overrides the service clock, primarily for tests.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock == nil {
			return
		}
		o.clock = clock
		o.clockSet = true
	}
}

// WithAuditRecorder injects an audit sink.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder == nil {
			return
		}
		o.audit = recorder
	}
}

// WithMetricsRecorder injects a metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder == nil {
			return
		}
		o.metrics = recorder
	}
}

// WithTracer injects a tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer == nil {
			return
		}
		o.tracer = tracer
	}
}

// WithBlobStore injects the blob backend holding evidence payloads and
// report artifacts. Defaults to an in-memory store.
func WithBlobStore(store BlobStore) ServiceOption {
	return func(o *serviceOptions) {
		if store == nil {
			return
		}
		o.blobs = store
	}
}

// auditCatalog maps operation names to the entity and action recorded in
// audit entries. Operations missing from the catalog (reads, authentication)
// are traced and measured but produce no audit entry.
var auditCatalog = map[string]struct {
	entity EntityType
	action Action
}{
	"create_role":            {EntityRole, ActionCreate},
	"update_role":            {EntityRole, ActionUpdate},
	"register_user":          {EntityUser, ActionCreate},
	"register_citizen":       {EntityUser, ActionCreate},
	"update_user":            {EntityUser, ActionUpdate},
	"deactivate_user":        {EntityUser, ActionUpdate},
	"register_case":          {EntityCase, ActionCreate},
	"update_case_details":    {EntityCase, ActionUpdate},
	"assign_officer":         {EntityCase, ActionUpdate},
	"transition_case_status": {EntityCase, ActionUpdate},
	"reopen_case":            {EntityCase, ActionUpdate},
	"archive_case":           {EntityCase, ActionUpdate},
	"file_supplementary_fir": {EntityFIR, ActionCreate},
	"add_party":              {EntityParty, ActionCreate},
	"update_party":           {EntityParty, ActionUpdate},
	"withdraw_party":         {EntityParty, ActionUpdate},
	"add_evidence":           {EntityEvidence, ActionCreate},
	"append_custody":         {EntityEvidence, ActionUpdate},
	"release_evidence":       {EntityEvidence, ActionUpdate},
	"append_case_note":       {EntityCaseNote, ActionCreate},
	"add_legal_section":      {EntityLegalSection, ActionCreate},
	"update_legal_section":   {EntityLegalSection, ActionUpdate},
	"cite_section":           {EntityCitation, ActionCreate},
}

// selectNowFunc picks the service clock: a store-provided time source wins,
// then an injected Clock, then the system clock. All paths yield UTC.
func selectNowFunc(store PersistentStore, clock Clock) func() time.Time {
	if provider, ok := store.(interface{ NowFunc() func() time.Time }); ok {
		if fn := provider.NowFunc(); fn != nil {
			return func() time.Time { return fn().UTC() }
		}
	}
	if clock != nil {
		return func() time.Time { return clock.Now().UTC() }
	}
	return func() time.Time { return time.Now().UTC() }
}

// extractRulesEngine surfaces the engine from stores that expose one.
func extractRulesEngine(store PersistentStore) *domain.RulesEngine {
	if provider, ok := store.(interface{ RulesEngine() *domain.RulesEngine }); ok {
		return provider.RulesEngine()
	}
	return nil
}

package core

import (
	"context"
	"time"

	"casefile/internal/blob"
	"casefile/pkg/domain"
)

// Service exposes the transactional case-records operations. Every operation
// resolves its acting user from the context, checks the actor's role against
// the required permission, and runs inside a rules-guarded transaction or a
// consistent read snapshot. Operations are traced, measured, and, for
// mutations, audited.
type Service struct {
	store PersistentStore
	opts  serviceOptions
	nowFn func() time.Time
}

// NewService constructs a service backed by the supplied store. An injected
// clock is pushed into stores that accept one, so persistence timestamps and
// the service clock agree.
func NewService(store PersistentStore, options ...ServiceOption) *Service {
	opts := defaultServiceOptions()
	for _, apply := range options {
		if apply != nil {
			apply(&opts)
		}
	}
	if opts.blobs == nil {
		opts.blobs = blob.NewMemory()
	}
	if opts.clockSet {
		if setter, ok := store.(interface{ SetNowFunc(func() time.Time) }); ok {
			setter.SetNowFunc(opts.clock.Now)
		}
	}
	return &Service{
		store: store,
		opts:  opts,
		nowFn: selectNowFunc(store, opts.clock),
	}
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, options ...ServiceOption) *Service {
	return NewService(NewMemoryStore(engine), options...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Blobs returns the object store holding evidence payloads and report artifacts.
func (s *Service) Blobs() BlobStore {
	return s.opts.blobs
}

// Now returns the service clock's current time in UTC.
func (s *Service) Now() time.Time {
	return s.nowFn()
}

// RulesEngine returns the engine guarding the store, when the store exposes one.
func (s *Service) RulesEngine() *domain.RulesEngine {
	return extractRulesEngine(s.store)
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

// run wraps an operation with tracing, metrics, logging, and, for operations
// present in the audit catalog, an audit entry. The callback returns the
// primary entity ID recorded in the audit trail.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) (string, error)) error {
	ctx, span := s.opts.tracer.Start(ctx, op)
	start := time.Now()
	entityID, err := fn(ctx)
	duration := time.Since(start)

	s.opts.metrics.Observe(ctx, op, err == nil, duration)
	span.End(err)

	actor, _ := ActorFrom(ctx)
	if meta, ok := auditCatalog[op]; ok {
		entry := AuditEntry{
			Operation: op,
			Entity:    meta.entity,
			Action:    meta.action,
			EntityID:  entityID,
			Actor:     actor,
			Status:    AuditStatusSuccess,
			Duration:  duration,
			Timestamp: s.nowFn(),
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
		}
		s.opts.audit.Record(ctx, entry)
	}

	if err != nil {
		s.opts.logger.Warn("operation failed", "operation", op, "actor", actor, "error", err)
	} else {
		s.opts.logger.Debug("operation completed", "operation", op, "actor", actor, "entity_id", entityID)
	}
	return err
}

// AuthorizeReport verifies the acting user may queue case reports. Report
// jobs run asynchronously, so the queue re-checks case visibility with the
// requesting actor when the job executes.
func (s *Service) AuthorizeReport(ctx context.Context) (User, error) {
	var user User
	err := s.run(ctx, "authorize_report", func(ctx context.Context) (string, error) {
		actor, _, err := s.requireActor(ctx, domain.PermReportRun)
		if err != nil {
			return "", err
		}
		user = actor
		return actor.ID, nil
	})
	return user, err
}

// requireActor resolves the acting user from the context and verifies the
// account is active and its role grants the permission. An empty permission
// only requires an authenticated active account.
func (s *Service) requireActor(ctx context.Context, perm Permission) (User, Role, error) {
	id, ok := ActorFrom(ctx)
	if !ok {
		return User{}, Role{}, ErrNoActor
	}
	actor, ok := s.store.GetUser(id)
	if !ok {
		return User{}, Role{}, ErrNotFound{Entity: "user", ID: id}
	}
	if !actor.Active {
		return User{}, Role{}, PermissionError{Actor: id, Permission: perm}
	}
	role, ok := s.store.GetRole(actor.RoleID)
	if !ok {
		return User{}, Role{}, ErrNotFound{Entity: "role", ID: actor.RoleID}
	}
	if perm != "" && !role.Allows(perm) {
		return User{}, Role{}, PermissionError{Actor: id, Permission: perm}
	}
	return actor, role, nil
}

// scopeCase enforces citizen visibility: citizens only reach cases they
// filed. Officer-grade roles pass through untouched.
func scopeCase(actor User, role Role, c Case) error {
	if role.Name != RoleCitizen {
		return nil
	}
	if c.InformantUserID != nil && *c.InformantUserID == actor.ID {
		return nil
	}
	return PermissionError{Actor: actor.ID, Permission: domain.PermCaseRead}
}

// requireCase loads a case and applies citizen scoping.
func (s *Service) requireCase(actor User, role Role, id string) (Case, error) {
	c, ok := s.store.GetCase(id)
	if !ok {
		return Case{}, ErrNotFound{Entity: "case", ID: id}
	}
	if err := scopeCase(actor, role, c); err != nil {
		return Case{}, err
	}
	return c, nil
}

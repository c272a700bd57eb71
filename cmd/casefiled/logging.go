package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"casefile/internal/core"
)

// slogLogger adapts log/slog to the service logging surface.
type slogLogger struct {
	base *slog.Logger
}

func newLogger(level string) slogLogger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slogLogger{base: slog.New(handler)}
}

func (l slogLogger) Debug(msg string, kv ...any) { l.base.Debug(msg, kv...) }
func (l slogLogger) Info(msg string, kv ...any)  { l.base.Info(msg, kv...) }
func (l slogLogger) Warn(msg string, kv ...any)  { l.base.Warn(msg, kv...) }
func (l slogLogger) Error(msg string, kv ...any) { l.base.Error(msg, kv...) }

// auditLogger forwards audit entries to the structured log.
type auditLogger struct {
	log core.Logger
}

func (a auditLogger) Record(_ context.Context, entry core.AuditEntry) {
	kv := []any{
		"operation", entry.Operation,
		"entity", string(entry.Entity),
		"action", string(entry.Action),
		"status", string(entry.Status),
		"duration_ms", entry.Duration.Milliseconds(),
	}
	if entry.EntityID != "" {
		kv = append(kv, "entity_id", entry.EntityID)
	}
	if entry.Actor != "" {
		kv = append(kv, "actor", entry.Actor)
	}
	if entry.Error != "" {
		kv = append(kv, "error", entry.Error)
	}
	a.log.Info("audit", kv...)
}

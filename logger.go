package genarena

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with arena-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithHandle adds a handle field to the logger.
func (l *Logger) WithHandle(h Handle) *Logger {
	return &Logger{
		Logger: l.Logger.With("handle", h.String()),
	}
}

// WithArena tags every record with an arena name.
func (l *Logger) WithArena(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("arena", name),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(h Handle, err error) {
	if err != nil {
		l.Error("insert failed", "error", err)
		return
	}
	l.Debug("insert completed", "handle", h.String())
}

// LogFree logs a free operation.
func (l *Logger) LogFree(h Handle, err error) {
	if err != nil {
		l.Warn("free failed", "handle", h.String(), "error", err)
		return
	}
	l.Debug("free completed", "handle", h.String())
}

// LogAccess logs a refused borrow. Successful borrows are not logged.
func (l *Logger) LogAccess(h Handle, mode BorrowMode, err error) {
	if err == nil {
		return
	}
	var conflict *BorrowConflictError
	if errors.As(err, &conflict) {
		l.Warn("borrow refused",
			"handle", h.String(),
			"requested", mode.String(),
			"held", conflict.Held.String(),
			"shared", conflict.Shared,
		)
		return
	}
	l.Debug("access to stale handle", "handle", h.String(), "requested", mode.String(), "error", err)
}

// LogSnapshot logs a snapshot operation.
func (l *Logger) LogSnapshot(ctx context.Context, slots int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"slots", slots,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "snapshot written",
		"slots", slots,
		"bytes", bytes,
	)
}

// LogRestore logs a restore operation.
func (l *Logger) LogRestore(ctx context.Context, slots, live int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "restore completed",
		"slots", slots,
		"live", live,
	)
}

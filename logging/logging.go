// Package logging provides the Logger handle threaded through subsystem
// constructors and entry points (fragment.New, delivery.NewTracker,
// peer.NewRegistry, mesh.Shutdown). There is
// no package-level logger: callers that need logging receive one
// explicitly, and tests inject a recording implementation instead of a
// global singleton.
package logging

import "go.uber.org/zap"

// Logger is the minimal logging surface subsystems depend on. Verbo sits
// below Debug for the highest-volume per-fragment/per-ACK tracing.
type Logger interface {
	Verbo(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
}

type zapLogger struct {
	l *zap.Logger
	// verboEnabled gates Verbo calls; zap has no level below Debug, so
	// Verbo is emitted as Debug only when this is set.
	verboEnabled bool
}

// NewZap wraps a *zap.Logger as a Logger. verbose enables Verbo-level
// tracing (normally off in production).
func NewZap(l *zap.Logger, verbose bool) Logger {
	return &zapLogger{l: l, verboEnabled: verbose}
}

// NewProduction builds a sensible default production logger.
func NewProduction() (Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZap(l, false), nil
}

func (z *zapLogger) Verbo(msg string, fields ...zap.Field) {
	if z.verboEnabled {
		z.l.Debug(msg, fields...)
	}
}

func (z *zapLogger) Debug(msg string, fields ...zap.Field) { z.l.Debug(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...zap.Field)   { z.l.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...zap.Field)   { z.l.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...zap.Field)  { z.l.Error(msg, fields...) }
func (z *zapLogger) Fatal(msg string, fields ...zap.Field)  { z.l.Fatal(msg, fields...) }

func (z *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{l: z.l.With(fields...), verboEnabled: z.verboEnabled}
}

// NoLog discards everything. Useful as a zero-value default so callers
// that forget to inject a logger don't nil-pointer-panic.
var NoLog Logger = &discard{}

type discard struct{}

func (discard) Verbo(string, ...zap.Field) {}
func (discard) Debug(string, ...zap.Field) {}
func (discard) Info(string, ...zap.Field)  {}
func (discard) Warn(string, ...zap.Field)  {}
func (discard) Error(string, ...zap.Field) {}
func (discard) Fatal(string, ...zap.Field) {}
func (d discard) With(...zap.Field) Logger { return d }

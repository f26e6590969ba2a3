// Package logger wraps zerolog with context-aware helpers: any request id
// stashed in a context by the HTTP middleware is attached to every line
// logged under that context.
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type requestIDKey struct{}

// Logger is the process-wide structured logger.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger at the given level. With pretty enabled, output goes
// through zerolog's console writer instead of raw JSON.
func New(level string, pretty bool) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zl := log.Logger
	if pretty {
		zl = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return &Logger{zl: zl}
}

// ContextWithRequestID stores a request id in ctx for later log lines.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			zl := l.zl.With().Str("request_id", requestID).Logger()
			return &zl
		}
	}
	return &l.zl
}

// Debug logs a debug message.
func (l *Logger) Debug(ctx context.Context, msg string) { l.from(ctx).Debug().Msg(msg) }

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(ctx context.Context, format string, v ...interface{}) {
	l.from(ctx).Debug().Msgf(format, v...)
}

// Info logs an info message.
func (l *Logger) Info(ctx context.Context, msg string) { l.from(ctx).Info().Msg(msg) }

// Infof logs a formatted info message.
func (l *Logger) Infof(ctx context.Context, format string, v ...interface{}) {
	l.from(ctx).Info().Msgf(format, v...)
}

// Warn logs a warning message.
func (l *Logger) Warn(ctx context.Context, msg string) { l.from(ctx).Warn().Msg(msg) }

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(ctx context.Context, format string, v ...interface{}) {
	l.from(ctx).Warn().Msgf(format, v...)
}

// Error logs an error message.
func (l *Logger) Error(ctx context.Context, msg string) { l.from(ctx).Error().Msg(msg) }

// Errorf logs a formatted error message.
func (l *Logger) Errorf(ctx context.Context, format string, v ...interface{}) {
	l.from(ctx).Error().Msgf(format, v...)
}

// Err starts an error-level event with err attached; the caller finishes
// it with Msg.
func (l *Logger) Err(ctx context.Context, err error) *zerolog.Event {
	return l.from(ctx).Error().Err(err)
}

// WithField returns a child logger carrying key=value on every line.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithRequestID returns a child logger carrying the request id.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.WithField("request_id", requestID)
}

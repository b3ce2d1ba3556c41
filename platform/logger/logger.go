// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TraceIDKey is the context key for trace ID
	TraceIDKey contextKey = "trace_id"
	// SessionIDKey is the context key for chat session ID
	SessionIDKey contextKey = "session_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, trace_id, and session_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("trace_id", traceID))}
	}

	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok && sessionID != "" {
		newLogger = newLogger.WithSessionID(sessionID)
	}

	return newLogger
}

// WithSessionID returns a logger with the chat session ID attached
func (l *Logger) WithSessionID(sessionID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("session_id", sessionID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}

// QuoteCreated logs a quote creation with its idempotency outcome
func (l *Logger) QuoteCreated(quoteID int64, accountID int64, totalCents int64, replayed bool) {
	l.Info("quote_created",
		slog.Int64("quote_id", quoteID),
		slog.Int64("account_id", accountID),
		slog.Int64("total_cents", totalCents),
		slog.Bool("replayed", replayed),
	)
}

// IdempotencyConflict logs a rejected idempotency key reuse
func (l *Logger) IdempotencyConflict(key string) {
	l.Warn("idempotency_conflict",
		slog.String("key", key),
	)
}

// StreamClosed logs the terminal outcome of a streaming chat turn
func (l *Logger) StreamClosed(sessionID, outcome string, tokenCount int) {
	l.Info("stream_closed",
		slog.String("session_id", sessionID),
		slog.String("outcome", outcome),
		slog.Int("token_count", tokenCount),
	)
}

// ToolCall logs an agent tool invocation
func (l *Logger) ToolCall(sessionID, tool string, err error) {
	if err != nil {
		l.Warn("tool_call",
			slog.String("session_id", sessionID),
			slog.String("tool", tool),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Debug("tool_call",
		slog.String("session_id", sessionID),
		slog.String("tool", tool),
	)
}

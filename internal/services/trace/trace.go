// Package trace assigns correlation identifiers to wake submissions
// and measures their duration, so one identifier joins client and
// service logs for the same logical call.
package trace

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithCorrelationID returns a context carrying the correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// CorrelationID extracts the correlation id from ctx, or "" if unset.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

// NewCorrelationID generates a fresh correlation identifier.
func NewCorrelationID() string {
	return uuid.NewString()
}

// Tracer creates spans for wake submissions.
type Tracer struct {
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a new tracer.
func New(logger zerolog.Logger) *Tracer {
	return &Tracer{logger: logger, now: time.Now}
}

// NewWithClock creates a tracer with a custom clock (for testing).
func NewWithClock(logger zerolog.Logger, now func() time.Time) *Tracer {
	return &Tracer{logger: logger, now: now}
}

// Span measures one traced operation.
type Span struct {
	correlationID string
	operation     string
	start         time.Time
	tracer        *Tracer
	logger        zerolog.Logger
}

// Start begins a span for operation. An empty correlationID generates
// a fresh one; passing the inbound id joins an existing trace.
func (t *Tracer) Start(operation, correlationID string) *Span {
	if correlationID == "" {
		correlationID = NewCorrelationID()
	}

	logger := t.logger.With().
		Str("correlation_id", correlationID).
		Str("operation", operation).
		Logger()

	logger.Debug().Msg("operation started")

	return &Span{
		correlationID: correlationID,
		operation:     operation,
		start:         t.now(),
		tracer:        t,
		logger:        logger,
	}
}

// CorrelationID returns the span's correlation identifier.
func (s *Span) CorrelationID() string {
	return s.correlationID
}

// Start returns the span's start time.
func (s *Span) Start() time.Time {
	return s.start
}

// Logger returns a logger carrying the correlation id and operation.
func (s *Span) Logger() zerolog.Logger {
	return s.logger
}

// End completes the span, logs its outcome and returns the duration.
func (s *Span) End(outcome string) time.Duration {
	duration := s.tracer.now().Sub(s.start)
	s.logger.Info().
		Str("outcome", outcome).
		Dur("duration", duration).
		Msg("operation completed")
	return duration
}

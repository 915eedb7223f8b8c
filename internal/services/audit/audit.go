// Package audit appends immutable, credential-free records of wake
// submissions.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/fgeck/wolproxy/internal/models"
	"github.com/rs/zerolog"
)

// Sink receives exactly one record per wake submission. Append must
// never block submission handling on failure; sinks log and move on.
type Sink interface {
	Append(record models.AuditRecord)
}

// LogSink writes audit records to the structured log.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Append writes one audit record as a log entry.
func (s *LogSink) Append(record models.AuditRecord) {
	s.logger.Info().
		Str("identifier", record.Identifier).
		Str("outcome", string(record.Outcome)).
		Str("correlation_id", record.CorrelationID).
		Str("source_addr", record.SourceAddr).
		Str("timestamp", record.Timestamp).
		Msg("wake audit")
}

// FileSink appends JSON-lines records to an audit trail file.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	logger zerolog.Logger
}

// NewFileSink opens (or creates) the audit file in append-only mode.
func NewFileSink(path string, logger zerolog.Logger) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	return &FileSink{file: file, logger: logger}, nil
}

// Append writes one record as a JSON line.
func (s *FileSink) Append(record models.AuditRecord) {
	line, err := json.Marshal(record)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode audit record")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(append(line, '\n')); err != nil {
		s.logger.Error().Err(err).Msg("failed to append audit record")
	}
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	return s.file.Close()
}

// MultiSink fans one record out to several sinks.
type MultiSink []Sink

// Append forwards the record to every sink.
func (m MultiSink) Append(record models.AuditRecord) {
	for _, sink := range m {
		sink.Append(record)
	}
}

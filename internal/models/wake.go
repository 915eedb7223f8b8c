package models

import (
	"net/http"
	"time"
)

// WakeStatus classifies the outcome of a single wake submission.
type WakeStatus string

const (
	StatusSent                WakeStatus = "Sent"
	StatusValidationError     WakeStatus = "ValidationError"
	StatusAuthenticationError WakeStatus = "AuthenticationError"
	StatusUnknownDevice       WakeStatus = "UnknownDevice"
	StatusTransmissionError   WakeStatus = "TransmissionError"
	StatusRateLimited         WakeStatus = "RateLimited"
)

// HTTPStatus maps a wake status to its transport status code.
func (s WakeStatus) HTTPStatus() int {
	switch s {
	case StatusSent:
		return http.StatusOK
	case StatusValidationError:
		return http.StatusBadRequest
	case StatusAuthenticationError:
		return http.StatusForbidden
	case StatusUnknownDevice:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WakeRequest carries one wake submission. It is created per call and
// must not outlive it; the credential is never logged or persisted.
type WakeRequest struct {
	Identifier    string
	Credential    string
	CorrelationID string
	SourceAddr    string
}

// WakeResult is the structured outcome of one wake submission.
// HardwareAddr is set only when Status is Sent.
type WakeResult struct {
	Status        WakeStatus `json:"status"`
	Identifier    string     `json:"identifier,omitempty"`
	HardwareAddr  string     `json:"hardware_address,omitempty"`
	CorrelationID string     `json:"correlation_id"`
	Timestamp     string     `json:"timestamp"`
	Message       string     `json:"message,omitempty"`
}

// AuditRecord is the persisted, credential-free trace of one wake
// submission. Exactly one record is appended per Submit call.
type AuditRecord struct {
	Identifier    string     `json:"identifier"`
	Outcome       WakeStatus `json:"outcome"`
	CorrelationID string     `json:"correlation_id"`
	SourceAddr    string     `json:"source_addr,omitempty"`
	Timestamp     string     `json:"timestamp"`
}

// FormatTimestamp renders t as an ISO-8601 UTC timestamp with
// millisecond precision, e.g. "2026-02-10T20:12:52.493Z".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000") + "Z"
}

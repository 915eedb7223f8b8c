// Package models contains the data structures used throughout wolproxy.
package models

import "time"

// Config holds the complete wolproxy configuration.
type Config struct {
	Server *ServerConfig // nil if not configured
	Client *ClientConfig // nil if not configured
}

// ServerConfig configures the wake authority service.
type ServerConfig struct {
	ListenAddr     string
	BroadcastIP    string
	Credential     string // plaintext shared secret, usually via ${ENV}
	CredentialFile string // sealed credential file; takes precedence over Credential
	Devices        map[string]string
	RateLimit      RateLimitConfig
	AuditFile      string // optional JSONL audit trail
}

// RateLimitConfig bounds submissions per identifier in a sliding window.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// ClientConfig configures the wake-retry orchestrator.
type ClientConfig struct {
	ServerURL      string
	Identifier     string
	Credential     string // plaintext shared secret, usually via ${ENV}
	CredentialFile string // sealed credential file; takes precedence over Credential
	ProbeAddr      string
	ProbeTimeout   time.Duration
	SubmitTimeout  time.Duration
	MaxAttempts    int
	BootWindow     time.Duration
	AutoConfirm    bool
}

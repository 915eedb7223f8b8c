// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fgeck/wolproxy/internal/models"
	"github.com/spf13/viper"
)

// Bounds enforced on parsed values. The authority and orchestrator
// accept whatever they are constructed with; production configuration
// goes through these.
const (
	MinCredentialLen = 20
	MaxCredentialLen = 256

	MinAttempts = 1
	MaxAttempts = 10

	MinBootWindow = 10 * time.Second
	MaxBootWindow = 120 * time.Second
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	if p.v.IsSet("server") {
		server, err := p.parseServer()
		if err != nil {
			return nil, err
		}
		cfg.Server = server
	}

	if p.v.IsSet("client") {
		client, err := p.parseClient()
		if err != nil {
			return nil, err
		}
		cfg.Client = client
	}

	if cfg.Server == nil && cfg.Client == nil {
		return nil, fmt.Errorf("at least one of server or client must be configured")
	}

	return cfg, nil
}

//nolint:gocognit // parsing config requires checking many fields
func (p *Parser) parseServer() (*models.ServerConfig, error) {
	server := &models.ServerConfig{
		ListenAddr:     p.v.GetString("server.listen_addr"),
		BroadcastIP:    p.v.GetString("server.broadcast_ip"),
		Credential:     p.expandEnv(p.v.GetString("server.credential")),
		CredentialFile: p.expandEnv(p.v.GetString("server.credential_file")),
		Devices:        p.v.GetStringMapString("server.devices"),
		AuditFile:      p.expandEnv(p.v.GetString("server.audit_file")),
		RateLimit: models.RateLimitConfig{
			MaxRequests: p.v.GetInt("server.rate_limit.max_requests"),
			Window:      p.v.GetDuration("server.rate_limit.window"),
		},
	}

	// Set defaults.
	if server.ListenAddr == "" {
		server.ListenAddr = ":5001"
	}
	if server.BroadcastIP == "" {
		server.BroadcastIP = "255.255.255.255"
	}
	if server.RateLimit.MaxRequests == 0 {
		server.RateLimit.MaxRequests = 5
	}
	if server.RateLimit.Window == 0 {
		server.RateLimit.Window = 60 * time.Second
	}

	if server.Credential == "" && server.CredentialFile == "" {
		return nil, fmt.Errorf("server.credential or server.credential_file is required")
	}
	if server.Credential != "" {
		if err := validateCredentialLength(server.Credential); err != nil {
			return nil, fmt.Errorf("server.credential: %w", err)
		}
	}
	if len(server.Devices) == 0 {
		return nil, fmt.Errorf("server.devices is required")
	}

	return server, nil
}

//nolint:gocognit // parsing config requires checking many fields
func (p *Parser) parseClient() (*models.ClientConfig, error) {
	client := &models.ClientConfig{
		ServerURL:      p.expandEnv(p.v.GetString("client.server_url")),
		Identifier:     p.v.GetString("client.identifier"),
		Credential:     p.expandEnv(p.v.GetString("client.credential")),
		CredentialFile: p.expandEnv(p.v.GetString("client.credential_file")),
		ProbeAddr:      p.v.GetString("client.probe_addr"),
		ProbeTimeout:   p.v.GetDuration("client.probe_timeout"),
		SubmitTimeout:  p.v.GetDuration("client.submit_timeout"),
		MaxAttempts:    p.v.GetInt("client.max_attempts"),
		BootWindow:     p.v.GetDuration("client.boot_window"),
		AutoConfirm:    p.v.GetBool("client.auto_confirm"),
	}

	// Set defaults.
	if client.ProbeTimeout == 0 {
		client.ProbeTimeout = 5 * time.Second
	}
	if client.SubmitTimeout == 0 {
		client.SubmitTimeout = 10 * time.Second
	}
	if client.MaxAttempts == 0 {
		client.MaxAttempts = 5
	}
	if client.BootWindow == 0 {
		client.BootWindow = 45 * time.Second
	}

	if client.ServerURL == "" {
		return nil, fmt.Errorf("client.server_url is required")
	}
	if client.Identifier == "" {
		return nil, fmt.Errorf("client.identifier is required")
	}
	if client.Credential == "" && client.CredentialFile == "" {
		return nil, fmt.Errorf("client.credential or client.credential_file is required")
	}
	if client.ProbeAddr == "" {
		return nil, fmt.Errorf("client.probe_addr is required")
	}
	if client.MaxAttempts < MinAttempts || client.MaxAttempts > MaxAttempts {
		return nil, fmt.Errorf("client.max_attempts must be between %d and %d", MinAttempts, MaxAttempts)
	}
	if client.BootWindow < MinBootWindow || client.BootWindow > MaxBootWindow {
		return nil, fmt.Errorf("client.boot_window must be between %s and %s", MinBootWindow, MaxBootWindow)
	}

	return client, nil
}

func validateCredentialLength(credential string) error {
	if len(credential) < MinCredentialLen {
		return fmt.Errorf("too short (min %d chars, got %d)", MinCredentialLen, len(credential))
	}
	if len(credential) > MaxCredentialLen {
		return fmt.Errorf("too long (max %d chars, got %d)", MaxCredentialLen, len(credential))
	}
	return nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Server == nil && cfg.Client == nil {
		return fmt.Errorf("at least one of server or client must be configured")
	}

	return nil
}

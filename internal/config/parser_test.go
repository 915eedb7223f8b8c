package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_LoadReader_MinimalServerConfig(t *testing.T) {
	yaml := `
server:
  credential: "wol_prod_12345678901234567890"
  devices:
    "123456789": "AA:BB:CC:DD:EE:FF"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	require.NotNil(t, cfg.Server)
	assert.Nil(t, cfg.Client)
	// Check defaults
	assert.Equal(t, ":5001", cfg.Server.ListenAddr)
	assert.Equal(t, "255.255.255.255", cfg.Server.BroadcastIP)
	assert.Equal(t, 5, cfg.Server.RateLimit.MaxRequests)
	assert.Equal(t, 60*time.Second, cfg.Server.RateLimit.Window)
}

func TestParser_LoadReader_FullConfig(t *testing.T) {
	yaml := `
server:
  listen_addr: ":8080"
  broadcast_ip: "10.10.10.255"
  credential: "wol_prod_12345678901234567890"
  audit_file: "/var/log/wolproxy-audit.jsonl"
  devices:
    "123456789": "AA:BB:CC:DD:EE:FF"
    "987654321": "11:22:33:44:55:66"
  rate_limit:
    max_requests: 3
    window: 30s

client:
  server_url: "http://192.168.1.10:8080"
  identifier: "123456789"
  credential: "wol_prod_12345678901234567890"
  probe_addr: "192.168.1.50:3389"
  probe_timeout: 3s
  submit_timeout: 8s
  max_attempts: 4
  boot_window: 30s
  auto_confirm: true
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	require.NotNil(t, cfg.Server)
	require.NotNil(t, cfg.Client)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "10.10.10.255", cfg.Server.BroadcastIP)
	assert.Equal(t, "/var/log/wolproxy-audit.jsonl", cfg.Server.AuditFile)
	assert.Len(t, cfg.Server.Devices, 2)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.Server.Devices["123456789"])
	assert.Equal(t, 3, cfg.Server.RateLimit.MaxRequests)
	assert.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	assert.Equal(t, "http://192.168.1.10:8080", cfg.Client.ServerURL)
	assert.Equal(t, "123456789", cfg.Client.Identifier)
	assert.Equal(t, "192.168.1.50:3389", cfg.Client.ProbeAddr)
	assert.Equal(t, 3*time.Second, cfg.Client.ProbeTimeout)
	assert.Equal(t, 8*time.Second, cfg.Client.SubmitTimeout)
	assert.Equal(t, 4, cfg.Client.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Client.BootWindow)
	assert.True(t, cfg.Client.AutoConfirm)
}

func TestParser_LoadReader_ClientDefaults(t *testing.T) {
	yaml := `
client:
  server_url: "http://192.168.1.10:5001"
  identifier: "123456789"
  credential: "wol_prod_12345678901234567890"
  probe_addr: "192.168.1.50:3389"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	require.NotNil(t, cfg.Client)
	assert.Equal(t, 5*time.Second, cfg.Client.ProbeTimeout)
	assert.Equal(t, 10*time.Second, cfg.Client.SubmitTimeout)
	assert.Equal(t, 5, cfg.Client.MaxAttempts)
	assert.Equal(t, 45*time.Second, cfg.Client.BootWindow)
	assert.False(t, cfg.Client.AutoConfirm)
}

func TestParser_LoadReader_EnvExpansion(t *testing.T) {
	require.NoError(t, os.Setenv("TEST_WOL_CREDENTIAL", "wol_prod_12345678901234567890"))
	defer func() { _ = os.Unsetenv("TEST_WOL_CREDENTIAL") }()

	yaml := `
server:
  credential: "${TEST_WOL_CREDENTIAL}"
  devices:
    "123456789": "AA:BB:CC:DD:EE:FF"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "wol_prod_12345678901234567890", cfg.Server.Credential)
}

func TestParser_LoadReader_EmptyConfig(t *testing.T) {
	parser := NewParser()
	_, err := parser.LoadReader("{}")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one of server or client")
}

func TestParser_LoadReader_ServerMissingCredential(t *testing.T) {
	yaml := `
server:
  devices:
    "123456789": "AA:BB:CC:DD:EE:FF"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.credential")
}

func TestParser_LoadReader_ServerCredentialTooShort(t *testing.T) {
	yaml := `
server:
  credential: "tooshort"
  devices:
    "123456789": "AA:BB:CC:DD:EE:FF"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestParser_LoadReader_ServerMissingDevices(t *testing.T) {
	yaml := `
server:
  credential: "wol_prod_12345678901234567890"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.devices")
}

func TestParser_LoadReader_ClientMissingProbeAddr(t *testing.T) {
	yaml := `
client:
  server_url: "http://192.168.1.10:5001"
  identifier: "123456789"
  credential: "wol_prod_12345678901234567890"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "client.probe_addr")
}

func TestParser_LoadReader_ClientAttemptsOutOfRange(t *testing.T) {
	yaml := `
client:
  server_url: "http://192.168.1.10:5001"
  identifier: "123456789"
  credential: "wol_prod_12345678901234567890"
  probe_addr: "192.168.1.50:3389"
  max_attempts: 11
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")
}

func TestParser_LoadReader_ClientBootWindowOutOfRange(t *testing.T) {
	yaml := `
client:
  server_url: "http://192.168.1.10:5001"
  identifier: "123456789"
  credential: "wol_prod_12345678901234567890"
  probe_addr: "192.168.1.50:3389"
  boot_window: 5s
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boot_window")
}

func TestValidate_NilConfig(t *testing.T) {
	err := Validate(nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}

//go:build e2e

package e2e

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fgeck/wolproxy/internal/metrics"
	"github.com/fgeck/wolproxy/internal/models"
	"github.com/fgeck/wolproxy/internal/services/audit"
	"github.com/fgeck/wolproxy/internal/services/authority"
	"github.com/fgeck/wolproxy/internal/services/devices"
	"github.com/fgeck/wolproxy/internal/services/httpapi"
	"github.com/fgeck/wolproxy/internal/services/orchestrator"
	"github.com/fgeck/wolproxy/internal/services/probe"
	"github.com/fgeck/wolproxy/internal/services/ratelimit"
	"github.com/fgeck/wolproxy/internal/services/trace"
	"github.com/fgeck/wolproxy/internal/services/wakeclient"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const e2eCredential = "wol_e2e_123456789012345678901234"

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// captureTransmitter records magic packets instead of broadcasting them.
type captureTransmitter struct {
	mu    sync.Mutex
	wakes []net.HardwareAddr
}

func (c *captureTransmitter) Wake(broadcastIP string, mac net.HardwareAddr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wakes = append(c.wakes, mac)
	return nil
}

func (c *captureTransmitter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.wakes)
}

// startAuthority stands up the full HTTP stack around a capture
// transmitter and returns the server plus the transmitter.
func startAuthority(t *testing.T) (*httptest.Server, *captureTransmitter) {
	t.Helper()

	table, err := devices.NewStaticTable(map[string]string{
		"lab01": "aa:bb:cc:dd:ee:ff",
	})
	require.NoError(t, err)

	transmitter := &captureTransmitter{}
	svc := authority.NewWithDeps(
		testLogger(),
		table,
		[]byte(e2eCredential),
		"255.255.255.255",
		ratelimit.New(100, time.Minute),
		transmitter,
		audit.NewLogSink(testLogger()),
		trace.New(testLogger()),
	)

	handler := httpapi.NewHandler(testLogger(), svc, metrics.New(), "1.0.0")
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)

	return server, transmitter
}

// wakeOnProbe returns a prober that reports the target down until a
// magic packet arrives, simulating a machine booting after the wake.
func wakeOnProbe(transmitter *captureTransmitter, bootProbes int) probe.Prober {
	probes := 0
	return probe.Func(func(ctx context.Context) error {
		if transmitter.count() == 0 {
			return &net.OpError{Op: "dial", Err: context.DeadlineExceeded}
		}
		probes++
		if probes < bootProbes {
			return &net.OpError{Op: "dial", Err: context.DeadlineExceeded}
		}
		return nil
	})
}

func TestWakeRetryCycle_E2E(t *testing.T) {
	server, transmitter := startAuthority(t)

	client := wakeclient.New(testLogger(), server.URL, 10*time.Second)
	source := orchestrator.CredentialFunc(func() ([]byte, error) {
		return []byte(e2eCredential), nil
	})

	// Target boots on the second reprobe after the wake.
	svc := orchestrator.New(testLogger(), wakeOnProbe(transmitter, 2), client, source)

	outcome, err := svc.Run(context.Background(), orchestrator.Config{
		Identifier:  "lab01",
		MaxAttempts: 5,
		BootWindow:  50 * time.Millisecond,
	})

	require.NoError(t, err)
	assert.Equal(t, models.StateConnected, outcome.State)
	assert.True(t, outcome.WakeSubmitted)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, 1, transmitter.count(), "exactly one magic packet")
	require.NotNil(t, outcome.WakeResult)
	assert.Equal(t, models.StatusSent, outcome.WakeResult.Status)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", outcome.WakeResult.HardwareAddr)
	assert.NotEmpty(t, outcome.WakeResult.CorrelationID)
}

func TestWakeRejected_E2E(t *testing.T) {
	server, transmitter := startAuthority(t)

	client := wakeclient.New(testLogger(), server.URL, 10*time.Second)
	source := orchestrator.CredentialFunc(func() ([]byte, error) {
		return []byte("wrong_credential_12345678901234567890"), nil
	})

	svc := orchestrator.New(testLogger(), probe.Func(func(ctx context.Context) error {
		return &net.OpError{Op: "dial", Err: context.DeadlineExceeded}
	}), client, source)

	outcome, err := svc.Run(context.Background(), orchestrator.Config{
		Identifier:  "lab01",
		MaxAttempts: 5,
		BootWindow:  50 * time.Millisecond,
	})

	require.NoError(t, err)
	assert.Equal(t, models.StateExhausted, outcome.State)
	assert.Equal(t, 0, transmitter.count(), "rejected wake must not transmit")
	require.NotNil(t, outcome.WakeResult)
	assert.Equal(t, models.StatusAuthenticationError, outcome.WakeResult.Status)
}

func TestHealthAndMetrics_E2E(t *testing.T) {
	server, _ := startAuthority(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "wolproxy_http_requests_total")
}

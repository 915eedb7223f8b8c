//go:build integration

package integration

import (
	"net"
	"os"
	"testing"

	"github.com/fgeck/wolproxy/internal/services/authority"
	"github.com/stretchr/testify/require"
)

// Sends a real magic packet on the local broadcast domain. Gated on
// env so CI never floods the network.
func TestTransmitter_RealBroadcast(t *testing.T) {
	macStr := os.Getenv("TEST_WOL_MAC")
	if macStr == "" {
		t.Skip("TEST_WOL_MAC not set")
	}

	broadcastIP := os.Getenv("TEST_WOL_BROADCAST")
	if broadcastIP == "" {
		broadcastIP = "255.255.255.255"
	}

	mac, err := net.ParseMAC(macStr)
	require.NoError(t, err)

	transmitter := &authority.DefaultTransmitter{}
	require.NoError(t, transmitter.Wake(broadcastIP, mac))
}

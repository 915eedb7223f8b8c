// Package probe answers "is the target reachable now?" with a
// timeout-bounded check. The remote-desktop protocol itself is out of
// scope; any Prober can stand in.
package probe

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Prober reports target reachability. A nil error means reachable;
// refusal and timeout are both just failures.
type Prober interface {
	Probe(ctx context.Context) error
}

// Func adapts an ordinary function to the Prober interface.
type Func func(ctx context.Context) error

// Probe calls f.
func (f Func) Probe(ctx context.Context) error {
	return f(ctx)
}

// TCPProber checks reachability by dialing a TCP endpoint.
type TCPProber struct {
	addr    string
	timeout time.Duration
}

// NewTCPProber creates a prober dialing addr with the given timeout.
func NewTCPProber(addr string, timeout time.Duration) *TCPProber {
	return &TCPProber{addr: addr, timeout: timeout}
}

// Probe dials the target once; the connection is closed immediately.
func (p *TCPProber) Probe(ctx context.Context) error {
	dialer := net.Dialer{Timeout: p.timeout}

	conn, err := dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return fmt.Errorf("target %s not reachable: %w", p.addr, err)
	}
	_ = conn.Close()

	return nil
}

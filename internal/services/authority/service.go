// Package authority implements the stateless wake authority: it
// validates a wake request, authenticates it, resolves the identifier
// and issues a single magic-packet transmission.
package authority

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fgeck/wolproxy/internal/models"
	"github.com/fgeck/wolproxy/internal/services/audit"
	"github.com/fgeck/wolproxy/internal/services/devices"
	"github.com/fgeck/wolproxy/internal/services/ratelimit"
	"github.com/fgeck/wolproxy/internal/services/trace"
	"github.com/mdlayher/wol"
	"github.com/rs/zerolog"
)

// Identifier and credential shape bounds, checked before any lookup
// or comparison.
const (
	MaxIdentifierLen = 50
	MinCredentialLen = 20
	MaxCredentialLen = 256

	// WOL magic packets go to the discard port by convention.
	wolPort = "9"
)

// Service defines the wake authority contract. Submit never returns
// an error; every internal fault maps to a typed result status.
type Service interface {
	Submit(ctx context.Context, req models.WakeRequest) *models.WakeResult
}

// Transmitter sends one magic packet to the broadcast domain.
type Transmitter interface {
	Wake(broadcastIP string, mac net.HardwareAddr) error
}

// DefaultTransmitter is the default implementation using mdlayher/wol.
type DefaultTransmitter struct{}

// Wake sends a magic packet to the specified MAC address.
func (t *DefaultTransmitter) Wake(broadcastIP string, mac net.HardwareAddr) error {
	client, err := wol.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create WOL client: %w", err)
	}
	defer func() { _ = client.Close() }()

	ip := net.ParseIP(broadcastIP)
	if ip == nil {
		return fmt.Errorf("invalid broadcast IP: %s", broadcastIP)
	}

	if err := client.Wake(net.JoinHostPort(ip.String(), wolPort), mac); err != nil {
		return fmt.Errorf("failed to send WOL packet: %w", err)
	}

	return nil
}

// Impl implements the authority Service interface.
type Impl struct {
	devices       devices.Table
	limiter       *ratelimit.SlidingWindow
	transmitter   Transmitter
	auditSink     audit.Sink
	tracer        *trace.Tracer
	credentialSum [sha256.Size]byte
	broadcastIP   string
	logger        zerolog.Logger
	now           func() time.Time
}

// New creates a new authority service. The credential is retained
// only as a SHA-256 digest; the caller wipes the plaintext.
func New(
	logger zerolog.Logger,
	table devices.Table,
	credential []byte,
	broadcastIP string,
	rateLimit models.RateLimitConfig,
	auditSink audit.Sink,
) *Impl {
	return &Impl{
		devices:       table,
		limiter:       ratelimit.New(rateLimit.MaxRequests, rateLimit.Window),
		transmitter:   &DefaultTransmitter{},
		auditSink:     auditSink,
		tracer:        trace.New(logger),
		credentialSum: sha256.Sum256(credential),
		broadcastIP:   broadcastIP,
		logger:        logger,
		now:           time.Now,
	}
}

// NewWithDeps creates an authority service with custom collaborators
// (for testing).
func NewWithDeps(
	logger zerolog.Logger,
	table devices.Table,
	credential []byte,
	broadcastIP string,
	limiter *ratelimit.SlidingWindow,
	transmitter Transmitter,
	auditSink audit.Sink,
	tracer *trace.Tracer,
) *Impl {
	return &Impl{
		devices:       table,
		limiter:       limiter,
		transmitter:   transmitter,
		auditSink:     auditSink,
		tracer:        tracer,
		credentialSum: sha256.Sum256(credential),
		broadcastIP:   broadcastIP,
		logger:        logger,
		now:           time.Now,
	}
}

// Submit runs the wake pipeline: shape validation, rate check,
// authentication, resolution, transmission. Each step short-circuits
// on failure, exactly one audit record is appended per call, and no
// step retries.
func (s *Impl) Submit(ctx context.Context, req models.WakeRequest) (result *models.WakeResult) {
	if req.CorrelationID == "" {
		req.CorrelationID = trace.CorrelationID(ctx)
	}
	span := s.tracer.Start("wake_submit", req.CorrelationID)
	logger := span.Logger().With().Str("identifier", req.Identifier).Logger()

	defer func() {
		s.auditSink.Append(models.AuditRecord{
			Identifier:    req.Identifier,
			Outcome:       result.Status,
			CorrelationID: result.CorrelationID,
			SourceAddr:    req.SourceAddr,
			Timestamp:     result.Timestamp,
		})
		span.End(string(result.Status))
	}()

	// Step 1: shape validation. Rejections here reveal nothing about
	// which later check would have failed.
	if msg, ok := validateShape(req); !ok {
		logger.Warn().Str("reason", msg).Msg("malformed wake request")
		return s.result(span, req, models.StatusValidationError, "", msg)
	}

	// Step 2: rate check, independent of credential validity.
	if !s.limiter.Allow(req.Identifier) {
		logger.Warn().Msg("rate limit exceeded")
		return s.result(span, req, models.StatusRateLimited, "", "too many wake requests for this identifier")
	}

	// Step 3: authentication, before resolution so response time does
	// not depend on whether the identifier exists.
	supplied := sha256.Sum256([]byte(req.Credential))
	if subtle.ConstantTimeCompare(supplied[:], s.credentialSum[:]) != 1 {
		logger.Warn().Msg("invalid credential")
		return s.result(span, req, models.StatusAuthenticationError, "", "invalid credential")
	}

	// Step 4: resolution.
	mac, ok := s.devices.Resolve(req.Identifier)
	if !ok {
		logger.Warn().Msg("no hardware address registered for identifier")
		return s.result(span, req, models.StatusUnknownDevice, "", "no hardware address registered for this identifier")
	}

	// Step 5: single transmission attempt; retry policy belongs to
	// the caller.
	if err := s.transmitter.Wake(s.broadcastIP, mac); err != nil {
		logger.Error().Err(err).Str("mac", mac.String()).Msg("failed to send WOL packet")
		return s.result(span, req, models.StatusTransmissionError, "", "failed to send magic packet")
	}

	hwAddr := strings.ToUpper(mac.String())
	logger.Info().
		Str("mac", hwAddr).
		Str("broadcast", s.broadcastIP).
		Msg("WOL packet sent")

	return s.result(span, req, models.StatusSent, hwAddr,
		fmt.Sprintf("Wake-on-LAN packet sent to %s", hwAddr))
}

func (s *Impl) result(span *trace.Span, req models.WakeRequest, status models.WakeStatus, mac, msg string) *models.WakeResult {
	return &models.WakeResult{
		Status:        status,
		Identifier:    req.Identifier,
		HardwareAddr:  mac,
		CorrelationID: span.CorrelationID(),
		Timestamp:     models.FormatTimestamp(s.now()),
		Message:       msg,
	}
}

func validateShape(req models.WakeRequest) (string, bool) {
	if req.Identifier == "" {
		return "id parameter is required", false
	}
	if len(req.Identifier) > MaxIdentifierLen {
		return fmt.Sprintf("id parameter exceeds maximum length (%d chars, got %d)", MaxIdentifierLen, len(req.Identifier)), false
	}
	for _, r := range req.Identifier {
		if !isAlphanumeric(r) {
			return "id parameter must contain only alphanumeric characters", false
		}
	}

	if req.Credential == "" {
		return "key parameter is required", false
	}
	if len(req.Credential) < MinCredentialLen {
		return fmt.Sprintf("key is too short (min %d chars, got %d)", MinCredentialLen, len(req.Credential)), false
	}
	if len(req.Credential) > MaxCredentialLen {
		return fmt.Sprintf("key exceeds maximum length (%d chars, got %d)", MaxCredentialLen, len(req.Credential)), false
	}

	return "", true
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

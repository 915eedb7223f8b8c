// Package orchestrator drives one wake-and-retry session: detect an
// unreachable target, submit a single wake request, then re-probe
// through bounded boot windows until connected or exhausted.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/wolproxy/internal/models"
	"github.com/fgeck/wolproxy/internal/services/credstore"
	"github.com/fgeck/wolproxy/internal/services/probe"
	"github.com/fgeck/wolproxy/internal/services/wakeclient"
	"github.com/rs/zerolog"
)

// CredentialSource yields the shared secret right before a wake
// submission. The orchestrator wipes the returned bytes immediately
// after use.
type CredentialSource interface {
	Credential() ([]byte, error)
}

// CredentialFunc adapts a function to the CredentialSource interface.
type CredentialFunc func() ([]byte, error)

// Credential calls f.
func (f CredentialFunc) Credential() ([]byte, error) {
	return f()
}

// ConfirmFunc decides whether a wake may be submitted. Returning
// false cancels the session; nil means auto-confirm.
type ConfirmFunc func() bool

// Config bounds one retry session. Production values are range
// checked by the config parser; the orchestrator accepts any positive
// bounds so tests can run with short windows.
type Config struct {
	Identifier  string
	MaxAttempts int
	BootWindow  time.Duration
	Confirm     ConfirmFunc
}

// Outcome is the terminal result of one session. It distinguishes
// "the wake signal could not be sent" (WakeSubmitted with a non-Sent
// WakeResult or Err) from "the wake was sent but the target never
// came back" (Exhausted after a Sent result).
type Outcome struct {
	State         models.SessionState
	Attempts      int
	WakeSubmitted bool
	WakeResult    *models.WakeResult
	Reason        string
	Err           error
}

// Connected reports whether the session ended reachable.
func (o *Outcome) Connected() bool {
	return o.State == models.StateConnected
}

// Service defines the interface for running a wake-retry session.
type Service interface {
	Run(ctx context.Context, cfg Config) (*Outcome, error)
}

// Impl implements the orchestrator Service interface.
type Impl struct {
	prober      probe.Prober
	wakeClient  wakeclient.Service // nil when wake capability is not configured
	credentials CredentialSource
	logger      zerolog.Logger
}

// New creates a new orchestrator. wakeClient may be nil; the session
// then exhausts on the first failed probe.
func New(logger zerolog.Logger, prober probe.Prober, wakeClient wakeclient.Service, credentials CredentialSource) *Impl {
	return &Impl{
		prober:      prober,
		wakeClient:  wakeClient,
		credentials: credentials,
		logger:      logger,
	}
}

// session is the per-run state. One instance per target identifier;
// destroyed when Run returns.
type session struct {
	state         models.SessionState
	attempts      int
	wakeSubmitted bool
	logger        zerolog.Logger
}

func (s *session) to(next models.SessionState) {
	s.logger.Debug().
		Str("from", string(s.state)).
		Str("to", string(next)).
		Int("attempts", s.attempts).
		Msg("session transition")
	s.state = next
}

// Run executes one session to a terminal state. Cancellation is
// checked at every suspension point: before each probe, before the
// wake submission and before scheduling each wait. Total wall clock
// is bounded by MaxAttempts×BootWindow plus one submit round-trip.
//
//nolint:gocognit,gocyclo // the state machine is one linear walk by design
func (s *Impl) Run(ctx context.Context, cfg Config) (*Outcome, error) {
	if cfg.Identifier == "" {
		return nil, fmt.Errorf("identifier is required")
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1")
	}
	if cfg.BootWindow <= 0 {
		return nil, fmt.Errorf("boot window must be positive")
	}

	sess := &session{
		state:  models.StateIdle,
		logger: s.logger.With().Str("identifier", cfg.Identifier).Logger(),
	}

	sess.logger.Info().
		Int("max_attempts", cfg.MaxAttempts).
		Dur("boot_window", cfg.BootWindow).
		Msg("starting wake-retry session")

	// Idle → Probing.
	if ctx.Err() != nil {
		return s.cancelled(ctx, sess), nil
	}
	sess.to(models.StateProbing)

	if err := s.prober.Probe(ctx); err == nil {
		sess.to(models.StateConnected)
		sess.logger.Info().Msg("target reachable, no wake needed")
		return s.outcome(sess, "target reachable"), nil
	} else if ctx.Err() != nil {
		return s.cancelled(ctx, sess), nil
	}

	sess.to(models.StateFailed)
	sess.logger.Info().Msg("target unreachable")

	// Failed → AwaitingWakeDecision or Exhausted.
	if s.wakeClient == nil {
		sess.to(models.StateExhausted)
		return s.outcome(sess, "target unreachable and wake capability not configured"), nil
	}
	if sess.wakeSubmitted {
		sess.to(models.StateExhausted)
		return s.outcome(sess, "wake already submitted this session"), nil
	}

	sess.to(models.StateAwaitingWakeDecision)
	if cfg.Confirm != nil && !cfg.Confirm() {
		sess.to(models.StateCancelled)
		return s.outcome(sess, "wake declined"), nil
	}

	// AwaitingWakeDecision → Waking: exactly one Submit.
	if ctx.Err() != nil {
		return s.cancelled(ctx, sess), nil
	}
	sess.to(models.StateWaking)

	result, err := s.submitWake(ctx, sess, cfg.Identifier)
	if err != nil {
		if ctx.Err() != nil {
			return s.cancelled(ctx, sess), nil
		}
		sess.to(models.StateExhausted)
		out := s.outcome(sess, "wake signal could not be sent")
		out.Err = err
		return out, nil
	}
	if result.Status != models.StatusSent {
		// Definitive failures are never retried; a wrong credential or
		// an unknown identifier cannot succeed on a second try.
		sess.to(models.StateExhausted)
		out := s.outcome(sess, fmt.Sprintf("wake signal could not be sent: %s", result.Status))
		out.WakeResult = result
		return out, nil
	}

	sess.logger.Info().
		Str("correlation_id", result.CorrelationID).
		Str("hardware_address", result.HardwareAddr).
		Msg("wake signal sent, entering boot window")

	// Waking → BootWindow → Reprobing cycles.
	for {
		if ctx.Err() != nil {
			out := s.cancelled(ctx, sess)
			out.WakeResult = result
			return out, nil
		}
		sess.to(models.StateBootWindow)

		if err := s.wait(ctx, cfg.BootWindow); err != nil {
			out := s.cancelled(ctx, sess)
			out.WakeResult = result
			return out, nil
		}

		sess.to(models.StateReprobing)
		if ctx.Err() != nil {
			out := s.cancelled(ctx, sess)
			out.WakeResult = result
			return out, nil
		}

		if err := s.prober.Probe(ctx); err == nil {
			sess.to(models.StateConnected)
			sess.logger.Info().Int("attempts", sess.attempts).Msg("target came online")
			out := s.outcome(sess, "target reachable after wake")
			out.WakeResult = result
			return out, nil
		} else if ctx.Err() != nil {
			out := s.cancelled(ctx, sess)
			out.WakeResult = result
			return out, nil
		}

		sess.attempts++
		sess.logger.Info().
			Int("attempt", sess.attempts).
			Int("max_attempts", cfg.MaxAttempts).
			Msg("target still unreachable")

		if sess.attempts >= cfg.MaxAttempts {
			sess.to(models.StateExhausted)
			out := s.outcome(sess, "wake signal was sent but target never came online within the retry budget")
			out.WakeResult = result
			return out, nil
		}
	}
}

// submitWake performs the single wake submission for the session.
// wakeSubmitted flips before the call, not after, so a crash mid-call
// cannot lead to a duplicate on resume.
func (s *Impl) submitWake(ctx context.Context, sess *session, identifier string) (*models.WakeResult, error) {
	sess.wakeSubmitted = true

	credential, err := s.credentials.Credential()
	if err != nil {
		return nil, fmt.Errorf("credential unavailable: %w", err)
	}

	result, err := s.wakeClient.Submit(ctx, identifier, credential)
	credstore.Wipe(credential)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// wait blocks for d or until cancellation, whichever comes first.
// The timer is discarded on cancellation.
func (s *Impl) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Impl) cancelled(ctx context.Context, sess *session) *Outcome {
	sess.to(models.StateCancelled)
	out := s.outcome(sess, "session cancelled")
	out.Err = ctx.Err()
	return out
}

func (s *Impl) outcome(sess *session, reason string) *Outcome {
	return &Outcome{
		State:         sess.state,
		Attempts:      sess.attempts,
		WakeSubmitted: sess.wakeSubmitted,
		Reason:        reason,
	}
}

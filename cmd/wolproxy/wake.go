package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/wolproxy/internal/models"
	"github.com/fgeck/wolproxy/internal/services/orchestrator"
	"github.com/fgeck/wolproxy/internal/services/probe"
	"github.com/fgeck/wolproxy/internal/services/wakeclient"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Run one wake-retry session against the configured target",
	Long: `Run one client-side wake-retry session:
1. Probe the target
2. If unreachable, submit exactly one wake request to the authority
3. Wait through the boot window and re-probe until connected or the
   attempt budget is exhausted

The session ends Connected, Exhausted or Cancelled; the exit status
reflects the outcome.`,
	RunE: runWake,
}

func runWake(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Client == nil {
		log.Error().Msg("client section is required for wake")
		return errors.New("client section is not configured")
	}
	client := cfg.Client

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, cancelling session")
		cancel()
	}()

	svc := orchestrator.New(
		log.Logger,
		probe.NewTCPProber(client.ProbeAddr, client.ProbeTimeout),
		wakeclient.New(log.Logger, client.ServerURL, client.SubmitTimeout),
		orchestrator.CredentialFunc(func() ([]byte, error) {
			return resolveCredential(client.CredentialFile, client.Credential)
		}),
	)

	outcome, err := svc.Run(ctx, orchestrator.Config{
		Identifier:  client.Identifier,
		MaxAttempts: client.MaxAttempts,
		BootWindow:  client.BootWindow,
		Confirm:     confirmPolicy(client.AutoConfirm),
	})
	if err != nil {
		log.Error().Err(err).Msg("wake session failed to start")
		return err
	}

	event := log.Info()
	if outcome.State == models.StateExhausted {
		event = log.Error().Err(outcome.Err)
	}
	event.
		Str("state", string(outcome.State)).
		Int("attempts", outcome.Attempts).
		Bool("wake_submitted", outcome.WakeSubmitted).
		Str("reason", outcome.Reason).
		Msg("wake session finished")

	if !outcome.Connected() {
		return fmt.Errorf("session ended %s: %s", outcome.State, outcome.Reason)
	}
	return nil
}

// confirmPolicy returns nil (auto-confirm) or an interactive prompt
// reading a y/N answer from stdin.
func confirmPolicy(autoConfirm bool) orchestrator.ConfirmFunc {
	if autoConfirm {
		return nil
	}
	return func() bool {
		fmt.Print("Target is unreachable. Send wake signal? [y/N]: ")
		var answer string
		if _, err := fmt.Scanln(&answer); err != nil {
			return false
		}
		return answer == "y" || answer == "Y" || answer == "yes"
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fgeck/wolproxy/internal/config"
	"github.com/fgeck/wolproxy/internal/metrics"
	"github.com/fgeck/wolproxy/internal/models"
	"github.com/fgeck/wolproxy/internal/services/audit"
	"github.com/fgeck/wolproxy/internal/services/authority"
	"github.com/fgeck/wolproxy/internal/services/credstore"
	"github.com/fgeck/wolproxy/internal/services/devices"
	"github.com/fgeck/wolproxy/internal/services/httpapi"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wake authority service",
	Long: `Run the wake authority HTTP service:
- GET /wake?id=<identifier>&key=<credential> submits one wake request
- GET /health reports process liveness
- GET /metrics exposes Prometheus metrics

Each submission is validated, rate-limited, authenticated, resolved
against the device table and transmitted exactly once; every call
appends one credential-free audit record.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Server == nil {
		log.Error().Msg("server section is required for serve")
		return errors.New("server section is not configured")
	}

	credential, err := resolveCredential(cfg.Server.CredentialFile, cfg.Server.Credential)
	if err != nil {
		log.Error().Err(err).Msg("failed to load credential")
		return err
	}

	table, err := devices.NewStaticTable(cfg.Server.Devices)
	if err != nil {
		log.Error().Err(err).Msg("invalid device table")
		return err
	}

	sinks := audit.MultiSink{audit.NewLogSink(log.Logger)}
	if cfg.Server.AuditFile != "" {
		fileSink, err := audit.NewFileSink(cfg.Server.AuditFile, log.Logger)
		if err != nil {
			log.Error().Err(err).Msg("failed to open audit file")
			return err
		}
		defer func() { _ = fileSink.Close() }()
		sinks = append(sinks, fileSink)
	}

	m := metrics.New()
	svc := authority.New(log.Logger, table, credential, cfg.Server.BroadcastIP, cfg.Server.RateLimit, sinks)
	credstore.Wipe(credential)
	handler := httpapi.NewHandler(log.Logger, svc, m, Version)

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	errChan := make(chan error, 1)
	go func() {
		log.Info().
			Str("listen_addr", cfg.Server.ListenAddr).
			Str("broadcast_ip", cfg.Server.BroadcastIP).
			Int("devices", table.Len()).
			Msg("wake authority listening")
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			return err
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
			return err
		}
	}

	log.Info().Msg("wake authority stopped")
	return nil
}

func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	if configFile == "" {
		log.Error().Msg("config file is required")
		_ = cmd.Help()
		return nil, errors.New("config file is required")
	}

	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}

	return cfg, nil
}

// resolveCredential loads the shared secret: a sealed credential file
// bound to this machine takes precedence over an inline value. The
// caller wipes the returned bytes.
func resolveCredential(credentialFile, inline string) ([]byte, error) {
	if credentialFile != "" {
		enc, err := credstore.LoadFile(credentialFile)
		if err != nil {
			return nil, err
		}

		machineCtx, err := credstore.MachineContext()
		if err != nil {
			return nil, err
		}

		return credstore.New(log.Logger).Unseal(enc, machineCtx)
	}

	return []byte(inline), nil
}

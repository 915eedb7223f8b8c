package main

import (
	"fmt"
	"os"

	"github.com/fgeck/wolproxy/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without starting the service or sending any wake request.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Roles:")
	fmt.Printf("  Authority (serve): %v\n", cfg.Server != nil)
	fmt.Printf("  Orchestrator (wake): %v\n", cfg.Client != nil)

	if cfg.Server != nil {
		fmt.Println()
		fmt.Println("Server Configuration:")
		fmt.Printf("  Listen Address: %s\n", cfg.Server.ListenAddr)
		fmt.Printf("  Broadcast IP: %s\n", cfg.Server.BroadcastIP)
		fmt.Printf("  Devices: %d\n", len(cfg.Server.Devices))
		fmt.Printf("  Rate Limit: %d per %s\n", cfg.Server.RateLimit.MaxRequests, cfg.Server.RateLimit.Window)
		if cfg.Server.CredentialFile != "" {
			fmt.Printf("  Credential: sealed file %s\n", cfg.Server.CredentialFile)
		} else {
			fmt.Printf("  Credential: (configured)\n")
		}
		if cfg.Server.AuditFile != "" {
			fmt.Printf("  Audit File: %s\n", cfg.Server.AuditFile)
		}
	}

	if cfg.Client != nil {
		fmt.Println()
		fmt.Println("Client Configuration:")
		fmt.Printf("  Server URL: %s\n", cfg.Client.ServerURL)
		fmt.Printf("  Identifier: %s\n", cfg.Client.Identifier)
		fmt.Printf("  Probe Address: %s\n", cfg.Client.ProbeAddr)
		fmt.Printf("  Probe Timeout: %s\n", cfg.Client.ProbeTimeout)
		fmt.Printf("  Submit Timeout: %s\n", cfg.Client.SubmitTimeout)
		fmt.Printf("  Max Attempts: %d\n", cfg.Client.MaxAttempts)
		fmt.Printf("  Boot Window: %s\n", cfg.Client.BootWindow)
		fmt.Printf("  Auto Confirm: %v\n", cfg.Client.AutoConfirm)
		if cfg.Client.CredentialFile != "" {
			fmt.Printf("  Credential: sealed file %s\n", cfg.Client.CredentialFile)
		} else {
			fmt.Printf("  Credential: (configured)\n")
		}
	}

	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fgeck/wolproxy/internal/config"
	"github.com/fgeck/wolproxy/internal/services/credstore"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	credentialOut  string
	credentialEnv  string
	credentialFile string
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage the sealed shared secret",
}

var credentialSealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Seal the shared secret to this machine",
	Long: `Seal the shared secret into an encrypted credential file bound to
this machine. The secret is read from --env or --from-file and is
never written anywhere in plaintext. The sealed file cannot be
unsealed on another machine.`,
	RunE: runCredentialSeal,
}

var credentialShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print metadata of a sealed credential file",
	Long:  `Print the non-secret metadata of a sealed credential file. The secret itself is never displayed.`,
	RunE:  runCredentialShow,
}

func init() {
	credentialSealCmd.Flags().StringVar(&credentialOut, "out", "", "output path for the sealed credential (required)")
	credentialSealCmd.Flags().StringVar(&credentialEnv, "env", "", "environment variable holding the secret")
	credentialSealCmd.Flags().StringVar(&credentialFile, "from-file", "", "file holding the secret")
	credentialShowCmd.Flags().StringVar(&credentialFile, "file", "", "sealed credential file (required)")

	credentialCmd.AddCommand(credentialSealCmd)
	credentialCmd.AddCommand(credentialShowCmd)
}

func runCredentialSeal(cmd *cobra.Command, args []string) error {
	if credentialOut == "" {
		return errors.New("--out is required")
	}

	secret, err := readSecret()
	if err != nil {
		log.Error().Err(err).Msg("failed to read secret")
		return err
	}
	defer credstore.Wipe(secret)

	if len(secret) < config.MinCredentialLen || len(secret) > config.MaxCredentialLen {
		return fmt.Errorf("secret must be between %d and %d chars, got %d",
			config.MinCredentialLen, config.MaxCredentialLen, len(secret))
	}

	machineCtx, err := credstore.MachineContext()
	if err != nil {
		log.Error().Err(err).Msg("failed to derive machine context")
		return err
	}

	store := credstore.New(log.Logger)
	enc, err := store.Seal(secret, machineCtx)
	if err != nil {
		log.Error().Err(err).Msg("failed to seal credential")
		return err
	}

	if err := credstore.SaveFile(credentialOut, enc); err != nil {
		log.Error().Err(err).Msg("failed to write credential file")
		return err
	}

	log.Info().
		Str("path", credentialOut).
		Int("kdf_iterations", enc.KDFIterations).
		Msg("credential sealed to this machine")

	return nil
}

func runCredentialShow(cmd *cobra.Command, args []string) error {
	if credentialFile == "" {
		return errors.New("--file is required")
	}

	enc, err := credstore.LoadFile(credentialFile)
	if err != nil {
		log.Error().Err(err).Msg("failed to load credential file")
		return err
	}

	fmt.Println("Sealed credential:")
	fmt.Printf("  Salt:            %d bytes\n", len(enc.Salt))
	fmt.Printf("  IV:              %d bytes\n", len(enc.IV))
	fmt.Printf("  Ciphertext:      %d bytes\n", len(enc.Ciphertext))
	fmt.Printf("  KDF iterations:  %d\n", enc.KDFIterations)

	return nil
}

func readSecret() ([]byte, error) {
	switch {
	case credentialEnv != "":
		value := os.Getenv(credentialEnv)
		if value == "" {
			return nil, fmt.Errorf("environment variable %s is not set", credentialEnv)
		}
		return []byte(value), nil
	case credentialFile != "":
		raw, err := os.ReadFile(credentialFile)
		if err != nil {
			return nil, fmt.Errorf("reading secret file: %w", err)
		}
		return []byte(strings.TrimSpace(string(raw))), nil
	default:
		return nil, errors.New("one of --env or --from-file is required")
	}
}

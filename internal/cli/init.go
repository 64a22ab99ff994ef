package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cellarvault/cellar/internal/pkg/logger"
)

var (
	initLabel  string
	initKMSKey string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new vault in the current (or --dir) directory",
	Long: `Create a fresh cellar.toml vault file, generating a new age identity
for the first recipient (default label "me") and writing its private key
under ~/.cellar/keys/<project-id>/identity.key.

Pass --kms-key to additionally enable hybrid mode, wrapping every secret
under a cloud KMS key as a second independent encryption path.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initLabel, "label", "me", "label for the first recipient")
	initCmd.Flags().StringVar(&initKMSKey, "kms-key", "", "enable hybrid mode with this KMS key resource name")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	engine, err := newEngine()
	if err != nil {
		return err
	}

	logger.Debug("initializing vault", "dir", dir, "label", initLabel, "hybrid", initKMSKey != "")
	if err := engine.Init(cmdContext(), dir, initLabel, initKMSKey); err != nil {
		return err
	}

	if !IsQuiet() {
		fmt.Printf("Initialized vault in %s\n", dir)
		fmt.Printf("Recipient %q registered; private key stored in your local key store.\n", initLabel)
		if initKMSKey != "" {
			fmt.Printf("Hybrid mode enabled with KMS key %s\n", initKMSKey)
		}
	}
	return nil
}

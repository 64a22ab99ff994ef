package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cellarvault/cellar/internal/pkg/logger"
)

var (
	syncDryRun bool
	syncForce  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-encrypt the vault if the recipient set has drifted from recipients_hash",
	Long: `Sync compares the fingerprint of the vault's current recipient set
against the stored recipients_hash. If they match and --force is not
given, sync is a no-op: no secret is read or rewritten. Otherwise every
secret is re-encrypted for the current recipient set. --dry-run reports
whether a sync would do anything without rewriting the vault.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "report whether sync is needed without rewriting the vault")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "re-encrypt even if the fingerprint already matches")
}

func runSync(cmd *cobra.Command, args []string) error {
	h, err := openHandle(cmdContext())
	if err != nil {
		return err
	}
	result, err := h.Sync(cmdContext(), syncDryRun, syncForce)
	if err != nil {
		return err
	}
	logger.Debug("sync complete", "was_needed", result.WasNeeded, "dry_run", syncDryRun, "force", syncForce)

	if !result.WasNeeded {
		if !IsQuiet() {
			fmt.Println("Vault already in sync; nothing to do")
		}
		return nil
	}

	if syncDryRun {
		fmt.Println("Sync would re-encrypt the vault")
		return nil
	}

	if !IsQuiet() {
		fmt.Printf("Re-encrypted %d secret(s) for %d recipient(s)\n", result.Secrets, result.Recipients)
	}
	return nil
}

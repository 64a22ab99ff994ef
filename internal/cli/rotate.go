package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate the caller's identity and re-encrypt the vault",
	Long: `Rotate generates a fresh identity for the caller, archives the private
key file the current identity was read from (the project-local keyfile,
the global keyfile, or the file named by CELLAR_IDENTITY_FILE), writes
the new key to that same place, updates the caller's recipient entry,
and re-encrypts every secret for the updated set. The archive step and
the new key write must both succeed before re-encryption is committed.
An identity supplied inline via CELLAR_IDENTITY has no file to rotate,
and rotate refuses it.`,
	Args: cobra.NoArgs,
	RunE: runRotate,
}

func init() {
	rootCmd.AddCommand(rotateCmd)
}

func runRotate(cmd *cobra.Command, args []string) error {
	h, err := openHandle(cmdContext())
	if err != nil {
		return err
	}
	if err := h.Rotate(cmdContext()); err != nil {
		return err
	}
	if !IsQuiet() {
		fmt.Println("Identity rotated and vault re-encrypted")
	}
	return nil
}

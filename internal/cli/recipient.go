package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var recipientCmd = &cobra.Command{
	Use:   "recipient",
	Short: "Manage the vault's recipient set",
}

var recipientAddCmd = &cobra.Command{
	Use:   "add <label> <public-identifier>",
	Short: "Add a recipient and re-encrypt every secret for the expanded set",
	Long: `Add registers a new recipient (an age public key, a GPG fingerprint,
or a GPG email depending on the vault's cipher mode) under label, then
re-encrypts every existing secret so the new recipient can decrypt them.
Re-encryption is all-or-nothing: if any secret fails to decrypt under the
current identity, the vault file is left unchanged.`,
	Args: cobra.ExactArgs(2),
	RunE: runRecipientAdd,
}

var recipientRemoveCmd = &cobra.Command{
	Use:   "remove <label>",
	Short: "Remove a recipient and re-encrypt every secret for the reduced set",
	Long: `Remove revokes label's ability to decrypt future vault state: every
secret is re-encrypted without that recipient. Removing the last
remaining recipient is refused.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecipientRemove,
}

var recipientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the vault's current recipients",
	Args:  cobra.NoArgs,
	RunE:  runRecipientList,
}

func init() {
	rootCmd.AddCommand(recipientCmd)
	recipientCmd.AddCommand(recipientAddCmd)
	recipientCmd.AddCommand(recipientRemoveCmd)
	recipientCmd.AddCommand(recipientListCmd)
}

func runRecipientAdd(cmd *cobra.Command, args []string) error {
	label, publicID := args[0], args[1]
	h, err := openHandle(cmdContext())
	if err != nil {
		return err
	}
	if err := h.AddRecipient(cmdContext(), label, publicID); err != nil {
		return err
	}
	if !IsQuiet() {
		fmt.Printf("Added recipient %q and re-encrypted the vault\n", label)
	}
	return nil
}

func runRecipientRemove(cmd *cobra.Command, args []string) error {
	label := args[0]
	h, err := openHandle(cmdContext())
	if err != nil {
		return err
	}
	if err := h.RemoveRecipient(cmdContext(), label); err != nil {
		return err
	}
	if !IsQuiet() {
		fmt.Printf("Removed recipient %q and re-encrypted the vault\n", label)
	}
	return nil
}

func runRecipientList(cmd *cobra.Command, args []string) error {
	h, err := openHandle(cmdContext())
	if err != nil {
		return err
	}
	for _, r := range h.Recipients() {
		fmt.Printf("%s\t%s\n", r.Label, r.PublicIdentifier)
	}
	return nil
}

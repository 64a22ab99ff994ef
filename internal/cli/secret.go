package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cellarvault/cellar/internal/pkg/secmem"
)

var (
	setForce  bool
	getReveal bool
)

var setCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Set a secret, encrypting it for the vault's current recipients",
	Long: `Set stores name=value in the vault, encrypted for every current
recipient. If name already exists, --force is required to overwrite it.`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

var getCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Decrypt and print a secret's value",
	Long: `Get decrypts name using whichever local identity resolves against the
vault's recipient set, and prints the plaintext. The value is masked
unless --reveal is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List secret names in the vault",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a secret from the vault",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)

	setCmd.Flags().BoolVarP(&setForce, "force", "f", false, "overwrite an existing secret")
	getCmd.Flags().BoolVarP(&getReveal, "reveal", "r", false, "print the actual value instead of a masked form")
}

func runSet(cmd *cobra.Command, args []string) error {
	name, value := args[0], args[1]
	h, err := openHandle(cmdContext())
	if err != nil {
		return err
	}
	if err := h.Set(cmdContext(), name, value, setForce); err != nil {
		return err
	}
	if !IsQuiet() {
		fmt.Printf("Set %s\n", name)
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	name := args[0]
	h, err := openHandle(cmdContext())
	if err != nil {
		return err
	}
	pt, err := h.Get(cmdContext(), name)
	if err != nil {
		return err
	}
	defer pt.Destroy()

	if getReveal {
		fmt.Println(pt.String())
	} else {
		fmt.Println(maskSecretValue(pt))
		if !IsQuiet() {
			fmt.Fprintln(cmd.ErrOrStderr(), "use --reveal to print the actual value")
		}
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	h, err := openHandle(cmdContext())
	if err != nil {
		return err
	}
	names := h.List()
	if len(names) == 0 {
		if !IsQuiet() {
			fmt.Println("No secrets in this vault")
		}
		return nil
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	h, err := openHandle(cmdContext())
	if err != nil {
		return err
	}
	if err := h.Delete(cmdContext(), name); err != nil {
		return err
	}
	if !IsQuiet() {
		fmt.Printf("Deleted %s\n", name)
	}
	return nil
}

// maskSecretValue masks all but the first and last two bytes of pt for
// terminal display, reading its length and edges directly off the zeroizing
// container rather than copying the whole plaintext into a Go string first.
func maskSecretValue(pt *secmem.Bytes) string {
	n := pt.Len()
	if n == 0 {
		return ""
	}
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	b := pt.Bytes()
	return string(b[:2]) + strings.Repeat("*", n-4) + string(b[n-2:])
}

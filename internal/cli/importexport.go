package cli

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var (
	importFile string
	exportFile string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-set secrets from a .env-style file",
	Long: `Import reads NAME=value lines from --file (or stdin if omitted) and
sets each as a secret. Blank lines and lines starting with # are
skipped. Entries that fail validation are reported but do not block the
rest of the file from being imported.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Decrypt every secret and print it as NAME=value lines",
	Long: `Export decrypts every secret in the vault and writes it in .env form to
--file, or stdout if omitted. Export aborts on the first secret that
fails to decrypt.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	importCmd.Flags().StringVar(&importFile, "file", "", "path to a .env-style file (default: stdin)")
	exportCmd.Flags().StringVar(&exportFile, "file", "", "path to write .env-style output (default: stdout)")
}

func runImport(cmd *cobra.Command, args []string) error {
	var in *os.File
	if importFile != "" {
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()
		in = f
	} else {
		in = os.Stdin
	}

	pairs, err := parseEnvLines(in)
	if err != nil {
		return err
	}

	h, err := openHandle(cmdContext())
	if err != nil {
		return err
	}

	result, err := h.Import(cmdContext(), pairs)
	if err != nil {
		return err
	}

	if !IsQuiet() {
		fmt.Printf("Imported %d secret(s)\n", len(result.Imported))
		if len(result.Failures) > 0 {
			names := make([]string, 0, len(result.Failures))
			for name := range result.Failures {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", name, result.Failures[name])
			}
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	h, err := openHandle(cmdContext())
	if err != nil {
		return err
	}

	secrets, err := h.Export(cmdContext())
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range secrets {
			s.Plaintext.Destroy()
		}
	}()

	out := os.Stdout
	if exportFile != "" {
		f, err := os.OpenFile(exportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("open export file: %w", err)
		}
		defer f.Close()
		out = f
	}

	for _, s := range secrets {
		fmt.Fprintf(out, "%s=%s\n", s.Name, s.Plaintext.String())
	}
	return nil
}

func parseEnvLines(f *os.File) (map[string]string, error) {
	pairs := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		pairs[strings.TrimSpace(name)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read import input: %w", err)
	}
	return pairs, nil
}

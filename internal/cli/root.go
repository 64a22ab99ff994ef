// Package cli wires the vault engine into a cobra command tree. Every
// command here is a thin pass-through: parse flags/args, call into
// vaultengine, format the result. No vault logic lives in this package.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cellarvault/cellar/internal/app/vaultengine"
	"github.com/cellarvault/cellar/internal/pkg/logger"
)

var (
	cfgFile  string
	verbose  bool
	quiet    bool
	dirFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "cellar",
	Short: "A local-first, age-encrypted secrets vault for a project directory",
	Long: `cellar manages a per-project secrets vault: a single human-readable
TOML file holding secrets encrypted for a set of recipients, using age
(and, optionally, a cloud KMS as a second encryption path, or GPG).

No server, no database — the vault file travels with the repository and
is decrypted locally by whichever recipient's private key is available.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Config{Level: slog.LevelInfo, Verbose: verbose})
		if err := initConfig(); err != nil && verbose {
			logger.Warn("loading config", "error", err)
		}
	},
}

// Execute adds all child commands to the root command and runs it. Called
// once from cmd/cellar/main.go.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() {
		_ = initConfig()
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cellar.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet output (errors only)")
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "C", "", "project directory (default: current directory)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".cellar")
	}

	viper.SetEnvPrefix("CELLAR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "using config file: %s\n", viper.ConfigFileUsed())
	}
	return nil
}

// IsVerbose reports whether verbose output was requested.
func IsVerbose() bool { return viper.GetBool("verbose") }

// IsQuiet reports whether quiet output was requested.
func IsQuiet() bool { return viper.GetBool("quiet") }

// projectDir resolves the target project directory: --dir if given,
// otherwise the process's current working directory.
func projectDir() (string, error) {
	if dirFlag != "" {
		return filepath.Abs(dirFlag)
	}
	return os.Getwd()
}

// newEngine builds a vaultengine.Engine over the real filesystem, the
// real process environment, and the caller's home directory.
func newEngine() (*vaultengine.Engine, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return vaultengine.New(afero.NewOsFs(), home, os.Getenv), nil
}

func openHandle(ctx context.Context) (*vaultengine.Handle, error) {
	dir, err := projectDir()
	if err != nil {
		return nil, err
	}
	engine, err := newEngine()
	if err != nil {
		return nil, err
	}
	return engine.Open(ctx, dir)
}

func cmdContext() context.Context {
	return context.Background()
}

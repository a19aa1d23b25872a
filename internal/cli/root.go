// Package cli wires the codexd command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andywolf/codexd/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "codexd",
	Short: "codexd - coordination service for headless Codex runs",
	Long: `codexd supervises headless Codex CLI invocations on behalf of a local
frontend: it streams their JSON event output, reads past session rollouts,
and composes insights-then-proposal workflows that end in a validated patch
against the host repository.

Example:
  codexd serve --addr 127.0.0.1:8173`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .codexd.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".codexd")
	}

	viper.SetEnvPrefix("CODEXD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

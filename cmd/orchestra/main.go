package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/IIP-Design/orchestra/internal/config"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "orchestra",
		Short:        "Orchestra -- poll content sources into one store",
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().Bool("json", false, "Output machine-readable JSON")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to the console")
	root.PersistentFlags().StringP("config", "c", config.DefaultPath(), "Path to the configuration file (env ORCHESTRA_CONFIG)")
	root.PersistentFlags().StringP("environment", "e", config.DefaultEnvironment(), "Environment section to use (env ORCHESTRA_ENV)")

	root.AddCommand(validateCmd())
	root.AddCommand(sourcesCmd())
	root.AddCommand(fetchCmd())
	root.AddCommand(runCmd())
	return root
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "celerix-recordsd",
	Short: "Celerix Records serves schema-driven CRUD collections over HTTP",
	Long: `celerix-recordsd exposes every entity of its catalog under its own URL
prefix with the same five routes: create, list, get, update and delete.
Configuration comes from defaults, an optional YAML file and CELERIX_*
environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (YAML)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "celerix-recordsd %s\n", version)
	},
}

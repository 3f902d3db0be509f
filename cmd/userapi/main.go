package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soypete/userapi/pkg/config"
)

const version = "0.1.0"

// Global flags
var configFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "userapi",
		Short: "User records over HTTP with a liveness notification channel",
		Long: `userapi serves create/read/update/delete operations on user records
backed by SQLite (or PostgreSQL), and announces itself to websocket clients
on a separate port.

Running userapi without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: userapi.json or userapi.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the notification channel",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users table if it does not exist",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "userapi version %s\n", version)
		},
	}
}

// loadConfig loads --config when given, otherwise the default locations.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

// Package commands provides the CLI commands for editorbridge.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/editorbridge/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	prettyLog bool
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "editorbridge",
	Short: "Editorbridge - bridge coding agents to your editor",
	Long: `Editorbridge exposes editor actions (open a file, show a diff, list
changed files) to local coding agents over an MCP server.

Run 'editorbridge serve' to start the server, then point your agent's
MCP configuration at it.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.Config{
			Level:  logging.ParseLevel(logLevel),
			Pretty: prettyLog,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty", false, "Human-readable log output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server base URL (default http://127.0.0.1:3742)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("editorbridge %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(changedCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// resolveServerURL picks the --server flag, the environment, or the default.
func resolveServerURL() string {
	if serverURL != "" {
		return serverURL
	}
	if v := os.Getenv("EDITORBRIDGE_URL"); v != "" {
		return v
	}
	return "http://127.0.0.1:3742"
}

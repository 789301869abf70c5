// Package cmd contains the CLI commands for compliopsctl.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// defaultServer is the API base URL, can be overridden via COMPLIOPS_SERVER env var
var defaultServer = "http://localhost:8000"

func init() {
	if env := os.Getenv("COMPLIOPS_SERVER"); env != "" {
		defaultServer = env
	}
}

var (
	// Used for flags
	verbose bool
	output  string
	server  string
	timeout time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "compliopsctl",
	Short: "compliopsctl - CompliOps API client",
	Long: `compliopsctl talks to a running compliops-server over its REST API.

Examples:
  # Show the latest alerts
  compliopsctl alerts list --limit 5

  # Generate a report and wait for it to finish
  compliopsctl reports generate <alert-id> --wait

  # Check server health and gateway mode
  compliopsctl health`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&server, "server", "s", defaultServer, "compliops-server base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

func newClient() *Client {
	return NewClient(server, timeout)
}

// Package cli provides the command-line interface for bookpack.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/raphaelgruber/bookpack/internal/client"
	"github.com/raphaelgruber/bookpack/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string
	timeout   time.Duration

	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bookpack",
	Short: "Book companion built from public reader and critic commentary",
	Long: `Bookpack builds a knowledge pack for a book from Goodreads reviews,
Reddit discussions, The Guardian and Literary Hub, then answers questions
about the book grounded in what readers and critics have said.

All commands talk to a running bookpack-server.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(config.NewLogger(os.Stderr, nil, level))

		if serverURL == "" {
			serverURL = cfg.ServerURL
		}
		apiClient = client.New(serverURL, timeout)
		slog.Debug("client configured", "server", serverURL, "timeout", timeout)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default $BOOKPACK_SERVER_URL or http://localhost:8484)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "request timeout (default $BOOKPACK_CLIENT_TIMEOUT or 5m)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(statsCmd)
}

// notFoundHint rewrites a 404 into a message pointing at the next step.
func notFoundHint(err error, hint string) error {
	if client.IsNotFound(err) {
		return fmt.Errorf("%w (%s)", err, hint)
	}
	return err
}

// Package cli implements the newsloom command tree.
//
// Exit codes: 0 success, 1 runtime failure, 2 configuration error.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/internal/version"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "newsloom",
	Short:         "News ingestion and trend detection pipeline",
	Long:          "Newsloom polls RSS/Atom feeds, extracts and deduplicates articles,\nchunks them with an LLM, embeds the chunks and serves search and trends\non top of PostgreSQL.",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(func() {
		// Local development convenience. Load never overwrites
		// variables already present in the environment.
		_ = godotenv.Load()
	})

	rootCmd.AddCommand(
		newEnsureCmd(),
		newDiscoveryCmd(),
		newPollCmd(),
		newWorkCmd(),
		newServicesCmd(),
		newTrendsCmd(),
		newRagCmd(),
		newReportCmd(),
	)
}

// Execute runs the command tree and maps the error to an exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, config.ErrInvalid) {
			return exitConfig
		}
		return exitRuntime
	}
	return exitOK
}

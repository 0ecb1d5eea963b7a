// Package cmd defines and implements the CLI commands for the crypton executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moltrus/Crypton/internal/app"
)

var cfgFile string

// exitCode carries a non-fatal exit status set by subcommands, such as
// a partially failed ingest batch.
var exitCode int

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can
// replace it with a factory that returns a stubbed app.
var newApp = func(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfgFile)
}

// newRootCmd creates and configures the root command. The app is built
// once in PersistentPreRunE and injected into the command context so
// every subcommand shares the same service graph.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crypton",
		Short: "RSS article ingestion and vector sync service.",
		Long: `crypton polls RSS feeds, extracts article content through a chain of
fallback strategies, persists and deduplicates the results, and keeps
one or more vector stores in sync for semantic search.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (environment variables apply when unset)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newRetryCmd())
	cmd.AddCommand(newReextractCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point. It returns the process exit status:
// 0 on success, 1 on failure, and whatever a subcommand set for
// partial outcomes.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return exitCode
}

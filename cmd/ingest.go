package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Polls the configured feeds and ingests new articles",
		Long: `Fetches every configured RSS feed, runs the extraction chain over the
discovered article links, and persists the results. Already seen
articles are skipped; failed extractions land in the failure ledger
for later retry.`,

		RunE: runIngestCommand,
	}
	return cmd
}

func runIngestCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger

	refs, err := appInstance.Poller.Poll(cmd.Context())
	if err != nil {
		return fmt.Errorf("poll feeds: %w", err)
	}
	if len(refs) == 0 {
		logger.Info("no feed items discovered")
		return nil
	}

	result, err := appInstance.Pipeline.Run(cmd.Context(), refs)
	if err != nil {
		return fmt.Errorf("run ingest batch: %w", err)
	}

	logger.Info("ingest command finished",
		zap.Int("discovered", len(refs)),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)

	switch {
	case result.Failed > 0 && result.Succeeded == 0 && result.Skipped == 0:
		return fmt.Errorf("ingest batch failed for all %d items", result.Failed)
	case result.Failed > 0:
		exitCode = 2
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newReextractCmd() *cobra.Command {
	var (
		includeStructural bool
		limit             int
	)

	cmd := &cobra.Command{
		Use:   "reextract",
		Short: "Re-runs the extraction chain over ledgered failures",
		Long: `Selects unresolved extraction failures that are due for another
attempt and runs them back through the full pipeline. Structural
failures, ones where no attempt looked transient, are skipped unless
--include-structural is set.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger

			maxAttempts := appInstance.Cfg.Pipeline.MaxExtractAttempts
			result, err := appInstance.Pipeline.Reextract(cmd.Context(), maxAttempts, includeStructural, limit)
			if err != nil {
				return fmt.Errorf("reextract: %w", err)
			}

			logger.Info("reextract batch finished",
				zap.Int("succeeded", result.Succeeded),
				zap.Int("failed", result.Failed),
				zap.Int("skipped", result.Skipped),
			)
			if result.Failed > 0 {
				exitCode = 2
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeStructural, "include-structural", false, "also retry failures with no transient attempt")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum failures to retry")
	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRetryCmd() *cobra.Command {
	var maxItems int

	cmd := &cobra.Command{
		Use:   "retry [store]",
		Short: "Retries vector sync rows that exhausted their attempts",
		Long: `Re-delivers articles whose sync state is failed, ignoring the retry
ceiling. Without an argument every configured store is retried.`,
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger

			stores := appInstance.Coordinator.StoreNames()
			if len(args) == 1 {
				stores = args[:1]
			}

			var failed int
			for _, store := range stores {
				result, err := appInstance.Coordinator.RetryFailed(cmd.Context(), store, maxItems)
				if err != nil {
					return fmt.Errorf("retry %s: %w", store, err)
				}
				failed += result.Failed
				logger.Info("retry batch finished",
					zap.String("store", result.Store),
					zap.Int("selected", result.Selected),
					zap.Int("synced", result.Synced),
					zap.Int("failed", result.Failed),
				)
			}
			if failed > 0 {
				exitCode = 2
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxItems, "max-items", 0, "maximum articles per store (0 uses the configured batch size)")
	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/news"
)

func newSyncCmd() *cobra.Command {
	var maxItems int

	cmd := &cobra.Command{
		Use:   "sync [store]",
		Short: "Pushes pending articles into the vector stores",
		Long: `Selects articles whose vector representation is missing or stale and
delivers them to the named vector store. Without an argument every
configured store is synced independently.`,
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger

			var results []news.SyncResult
			if len(args) == 1 {
				result, err := appInstance.Coordinator.SyncBatch(cmd.Context(), args[0], maxItems)
				if err != nil {
					return fmt.Errorf("sync %s: %w", args[0], err)
				}
				results = append(results, result)
			} else {
				results, err = appInstance.Coordinator.SyncAll(cmd.Context(), maxItems)
				if err != nil {
					return fmt.Errorf("sync all stores: %w", err)
				}
			}

			var failed int
			for _, res := range results {
				failed += res.Failed
				logger.Info("sync command finished",
					zap.String("store", res.Store),
					zap.Int("selected", res.Selected),
					zap.Int("synced", res.Synced),
					zap.Int("failed", res.Failed),
					zap.Int("skipped", res.Skipped),
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

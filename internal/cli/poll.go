package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsloom/newsloom/domain/feeds"
	"github.com/newsloom/newsloom/pkg/mathutil"
)

// newPollCmd runs one polling pass over the due feeds.
func newPollCmd() *cobra.Command {
	var (
		batchSize int
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll due feeds once and enqueue new entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			a.cfg.Poller.BatchSize = mathutil.ClampLimit(batchSize, a.cfg.Poller.BatchSize, 1000)
			a.cfg.Poller.Workers = mathutil.ClampLimit(workers, a.cfg.Poller.Workers, 64)

			poller := feeds.NewPoller(feeds.NewRepository(a.db), a.diag, a.cfg.Poller, a.log)
			stats, err := poller.Poll(ctx, time.Now())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"polled=%d not_modified=%d failed=%d entries_seen=%d enqueued=%d\n",
				stats.FeedsPolled, stats.FeedsNotModified, stats.FeedsFailed,
				stats.EntriesSeen, stats.EntriesEnqueued)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "max feeds per pass (default from POLL_BATCH)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent feed fetches (default from POLL_WORKERS)")
	return cmd
}

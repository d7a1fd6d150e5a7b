package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newsloom/newsloom/domain/trends"
	"github.com/newsloom/newsloom/pkg/mathutil"
)

// newTrendsCmd computes (or serves from cache) the current trend list
// and prints it as JSON.
func newTrendsCmd() *cobra.Command {
	var (
		windowHours int
		limit       int
		topN        int
	)

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Detect trending topics over the recent window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			windowHours = mathutil.ClampLimit(windowHours, a.cfg.Trends.WindowHours, 720)
			limit = mathutil.ClampLimit(limit, a.cfg.Trends.Limit, 5000)
			topN = mathutil.ClampLimit(topN, a.cfg.Trends.TopN, 100)

			svc := trends.NewService(
				trends.NewRepository(a.db),
				trends.NewCache(a.cfg.Redis, a.log),
				a.cfg.Trends, a.log)

			payload, _, err := svc.BuildTrendsJSON(ctx, windowHours, limit, topN)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return nil
		},
	}

	cmd.Flags().IntVar(&windowHours, "window", 0, "window in hours (default from TRENDS_WINDOW_HOURS)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max articles to consider (default from TRENDS_LIMIT)")
	cmd.Flags().IntVar(&topN, "top", 0, "max trends to return (default from TRENDS_TOP_N)")
	return cmd
}

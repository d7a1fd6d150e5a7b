package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newsloom/newsloom/domain/articles"
	"github.com/newsloom/newsloom/pkg/mathutil"
)

// newWorkCmd runs one extraction pass over pending raw articles.
func newWorkCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "work",
		Short: "Fetch, extract and deduplicate pending raw articles once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			a.cfg.Worker.BatchSize = mathutil.ClampLimit(batchSize, a.cfg.Worker.BatchSize, 1000)

			worker := articles.NewWorker(articles.NewRepository(a.db), a.diag, a.cfg.Worker, a.log)
			stats, err := worker.Work(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"claimed=%d stored=%d duplicate=%d retried=%d errored=%d\n",
				stats.Claimed, stats.Stored, stats.Duplicate, stats.Retried, stats.Errored)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "max raw articles per pass (default from WORK_BATCH)")
	return cmd
}

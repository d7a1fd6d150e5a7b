package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newsloom/newsloom/domain/articles"
	"github.com/newsloom/newsloom/domain/chunking"
	"github.com/newsloom/newsloom/domain/report"
)

// newReportCmd prints a pipeline status summary, optionally delivering
// it to the configured Telegram chat.
func newReportCmd() *cobra.Command {
	var sendTelegram bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize pipeline state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			svc := report.NewService(a.db, articles.NewRepository(a.db), chunking.NewRepository(a.db), a.log)
			summary, err := svc.Summarize(ctx)
			if err != nil {
				return err
			}

			text := report.Format(summary)
			fmt.Fprintln(cmd.OutOrStdout(), text)

			if sendTelegram {
				if err := report.NewTelegram(a.cfg.Telegram).Send(ctx, text); err != nil {
					return fmt.Errorf("send telegram: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "sent to telegram")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&sendTelegram, "send-telegram", false, "deliver the summary via Telegram")
	return cmd
}

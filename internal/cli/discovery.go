package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newsloom/newsloom/domain/feeds"
	"github.com/newsloom/newsloom/pkg/urlnorm"
)

// newDiscoveryCmd registers feed URLs for polling. Registration is
// idempotent: an already-known URL is reported, not duplicated.
func newDiscoveryCmd() *cobra.Command {
	var feedURLs []string

	cmd := &cobra.Command{
		Use:   "discovery",
		Short: "Register RSS/Atom feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(feedURLs) == 0 {
				return fmt.Errorf("at least one --feed is required")
			}

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			repo := feeds.NewRepository(a.db)
			for _, raw := range feedURLs {
				url, err := urlnorm.Canonicalize(raw, a.cfg.Poller.DeniedParams)
				if err != nil {
					return fmt.Errorf("canonicalize %s: %w", raw, err)
				}
				feed, created, err := repo.Ensure(ctx, url)
				if err != nil {
					return fmt.Errorf("register %s: %w", url, err)
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", feed.URL, feed.ID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "already registered %s (%s)\n", feed.URL, feed.ID)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&feedURLs, "feed", nil, "feed URL to register (repeatable)")
	return cmd
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newsloom/newsloom/domain/search"
	"github.com/newsloom/newsloom/pkg/mathutil"
)

// newRagCmd runs a hybrid lexical + semantic query over article chunks.
func newRagCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "rag <query>",
		Short: "Search article chunks with hybrid retrieval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			svc := search.NewService(search.NewRepository(a.db), a.llm(), a.cfg.Embedding, a.log)
			hits, err := svc.Search(ctx, args[0], mathutil.ClampLimit(limit, 10, 100))
			if err != nil {
				return err
			}

			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no results")
				return nil
			}

			out := cmd.OutOrStdout()
			for i, hit := range hits {
				fmt.Fprintf(out, "%2d. [%.4f] %s\n", i+1, hit.Score, hit.Title)
				fmt.Fprintf(out, "    %s (chunk %d)\n", hit.URL, hit.ChunkIndex)
				fmt.Fprintf(out, "    %s\n", snippet(hit.Text, 240))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "max results")
	return cmd
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	cut := strings.LastIndexByte(text[:max], ' ')
	if cut <= 0 {
		cut = max
	}
	return text[:cut] + "…"
}

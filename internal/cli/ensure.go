package cli

import (
	"github.com/spf13/cobra"

	"github.com/newsloom/newsloom/internal/migrate"
)

// newEnsureCmd applies pending migrations and verifies that the
// database is usable (pgvector installed, news schema present).
func newEnsureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Apply migrations and verify the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			m := migrate.NewMigrator(a.db, a.log)
			if err := m.Up(ctx); err != nil {
				return err
			}
			return m.Verify(ctx)
		},
	}
}

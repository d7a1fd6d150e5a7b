package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/newsloom/newsloom/domain/articles"
	"github.com/newsloom/newsloom/domain/chunking"
	"github.com/newsloom/newsloom/domain/diagnostics"
	"github.com/newsloom/newsloom/domain/embedding"
	"github.com/newsloom/newsloom/domain/feeds"
	"github.com/newsloom/newsloom/domain/fts"
	"github.com/newsloom/newsloom/domain/trends"
	"github.com/newsloom/newsloom/internal/config"
	"github.com/newsloom/newsloom/internal/database"
	"github.com/newsloom/newsloom/internal/services"
	"github.com/newsloom/newsloom/pkg/logger"
	"github.com/newsloom/newsloom/pkg/ollama"
)

func newServicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "Manage long-running pipeline services",
	}
	cmd.AddCommand(newServicesStartCmd())
	return cmd
}

// newServicesStartCmd runs the selected continuous services until a
// termination signal. Unlike the one-shot commands this goes through
// fx so lifecycle and shutdown ordering stay declarative.
func newServicesStartCmd() *cobra.Command {
	var names []string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run continuous services until terminated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := fx.New(
				fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
					return &fxevent.SlogLogger{Logger: log}
				}),

				logger.Module,
				config.Module,
				database.Module,
				ollama.Module,

				diagnostics.Module,
				feeds.Module,
				articles.Module,
				chunking.Module,
				embedding.Module,
				fts.Module,
				trends.Module,

				services.Module,
				fx.Provide(func(cfg *config.Config) (services.Selection, error) {
					return services.ResolveSelection(names, cfg.ServiceMode)
				}),
			)
			if err := app.Err(); err != nil {
				return err
			}

			app.Run()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&names, "services", nil,
		"services to run (poll,work,chunk,embed,fts,trends); defaults to SERVICE_MODE")
	return cmd
}

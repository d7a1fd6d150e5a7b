package ollama

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/newsloom/newsloom/internal/config"
)

// Module provides the shared Ollama client.
var Module = fx.Module("ollama",
	fx.Provide(func(cfg *config.Config, log *slog.Logger) *Client {
		return NewClient(FromConfig(cfg), log)
	}),
)

// FromConfig maps application settings onto client settings. The embed
// timeout comes from the embedding section; generation from the Ollama
// section.
func FromConfig(cfg *config.Config) Config {
	return Config{
		BaseURL:         cfg.Ollama.BaseURL,
		GenerateTimeout: cfg.Ollama.Timeout,
		EmbedTimeout:    cfg.Embedding.Timeout,
	}
}

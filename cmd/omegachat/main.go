package main

import (
	"log/slog"
	"os"

	"github.com/set-night/omegachat/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "omegachat",
		Short:         "Chat proxy for local Ollama models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}
			cfg = loaded

			// Setup structured logging
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: cfg.SlogLevel(),
			}))
			slog.SetDefault(logger)
			return nil
		},
	}

	current := func() *config.Config { return cfg }
	root.AddCommand(
		newServeCmd(current),
		newMigrateCmd(current),
		newModelsCmd(current),
	)
	return root
}

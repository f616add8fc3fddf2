package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/set-night/omegachat/internal/config"
	"github.com/set-night/omegachat/internal/ollama"
	"github.com/spf13/cobra"
)

func newModelsCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models sessions can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newGateway(cfg())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tSIZE\tTHINKING\tINSTALLED")
			for _, m := range client.ListAvailableModels(cmd.Context()) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%t\n", m.ID, m.Name, m.Type, m.Size, m.SupportsThinking, m.Installed)
			}
			return w.Flush()
		},
	}
}

func newGateway(cfg *config.Config) (*ollama.Client, *config.Catalog, error) {
	catalog, err := config.LoadCatalog(cfg.ModelCatalog)
	if err != nil {
		return nil, nil, err
	}
	return ollama.New(ollama.Options{
		BaseURL:        cfg.OllamaURL,
		RequestTimeout: cfg.RequestTimeout,
		ModelsTimeout:  cfg.ModelsTimeout,
		CacheTTL:       cfg.ModelCacheTTL,
		Catalog:        catalog,
	}), catalog, nil
}

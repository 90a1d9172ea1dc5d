package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/medreport/internal/selector"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models available on the inference server",
		Long: `Lists the models the configured inference server offers. The model marked
with * is the one extract uses when no --model is given.`,
		Example: `  # List local Ollama models
  medreport models

  # List models on a remote Ollama host
  medreport models --host http://gpu-box:11434`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			provider, err := newProvider(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd.Context(), cfg)
			defer cancel()

			models, err := selector.New(provider, cfg.DiscoveryAttempts, cfg.DiscoveryDelay).Models(ctx)
			if err != nil {
				return err
			}

			chosen, err := selector.Largest(models)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tNAME\tSIZE")
			for _, m := range models {
				marker := ""
				if m.Name == chosen.Name {
					marker = "*"
				}
				size := "-"
				if m.Size > 0 {
					size = humanize.Bytes(uint64(m.Size))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", marker, m.Name, size)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("provider", "", "Inference server type (ollama or openai)")
	cmd.Flags().String("host", "", "Ollama base URL")
	cmd.Flags().String("openai-base-url", "", "Base URL of an OpenAI-compatible server")

	return cmd
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/medreport/internal/extraction"
	"github.com/lehigh-university-libraries/medreport/internal/report"
	"github.com/lehigh-university-libraries/medreport/internal/selector"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract a structured summary from a medical report text file",
		Long: `Reads a text file, sends it to the local inference server with the output
constrained to the medical report schema, validates the reply and prints
the resulting record.

When no model is given, the largest model installed on the server is used.`,
		Example: `  # Extract with the largest local Ollama model
  medreport extract report.txt

  # Use a specific model and print JSON
  medreport extract report.txt --model gemma3:12b --output json

  # Use an LM Studio server
  medreport extract report.txt --provider openai --openai-base-url http://localhost:1234/v1`,
		Args: cobra.ExactArgs(1),
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

			service := extraction.NewService(
				provider,
				selector.New(provider, cfg.DiscoveryAttempts, cfg.DiscoveryDelay),
				extraction.Options{
					Temperature:  cfg.Temperature,
					Format:       cfg.FormatMode(),
					Instructions: cfg.Instructions,
				},
			)

			result, err := service.Extract(ctx, extraction.Request{
				Path:  args[0],
				Model: cfg.Model,
			})
			if err != nil {
				printRawReply(cmd, err)
				return err
			}

			return report.Render(cmd.OutOrStdout(), result.Summary, cfg.Output)
		},
	}

	cmd.Flags().StringP("model", "m", "", "Model name (defaults to the largest model on the server)")
	cmd.Flags().String("provider", "", "Inference server type (ollama or openai)")
	cmd.Flags().String("host", "", "Ollama base URL (defaults to OLLAMA_URL, OLLAMA_HOST or http://localhost:11434)")
	cmd.Flags().String("openai-base-url", "", "Base URL of an OpenAI-compatible server")
	cmd.Flags().StringP("output", "o", "", "Output format (text, json, yaml)")
	cmd.Flags().String("format", "", "Output constraint sent to the model (schema or json)")
	cmd.Flags().Float64("temperature", 0, "Sampling temperature")
	cmd.Flags().Duration("timeout", 0, "Overall time limit for the extraction")
	cmd.Flags().String("instructions-file", "", "Replace the built-in instructions with the contents of this file")

	return cmd
}

// printRawReply shows what the model actually said when its reply was rejected
func printRawReply(cmd *cobra.Command, err error) {
	var raw string

	var invalid *report.InvalidJSONError
	var schemaErr *report.SchemaError
	switch {
	case errors.As(err, &invalid):
		raw = invalid.Raw
	case errors.As(err, &schemaErr):
		raw = schemaErr.Raw
	default:
		return
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Response:\n%s\n", raw)
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/medreport/internal/config"
	"github.com/lehigh-university-libraries/medreport/internal/ollama"
	"github.com/lehigh-university-libraries/medreport/internal/openai"
	"github.com/lehigh-university-libraries/medreport/internal/providers"
)

func NewRootCmd() *cobra.Command {
	var cfgFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "medreport",
		Short: "Structured medical report extraction with a local LLM",
		Long: `Medreport sends a medical report to a locally hosted language model and
extracts the patient's name, date of birth, medical record number (MRN),
report date and a short summary, validated against a fixed JSON schema.

Supports Ollama and OpenAI-compatible local servers such as LM Studio,
llama.cpp and vLLM.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./medreport.yaml or $HOME/.config/medreport/medreport.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	// Add subcommands
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newSchemaCmd())

	return cmd
}

// loadConfig resolves configuration for cmd and installs the slog logger.
// Logs go to stderr so stdout only carries the extracted record.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logLevel := cfg.SlogLevel()
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	return cfg, nil
}

// newProvider builds the inference backend named by cfg.Provider
func newProvider(cfg *config.Config) (providers.Provider, error) {
	client := &http.Client{}

	switch cfg.Provider {
	case "ollama":
		host := cfg.OllamaHost
		if host == "" {
			host = ollama.ResolveHost()
		}
		return ollama.New(host, client), nil
	case "openai":
		return openai.New(cfg.OpenAIBaseURL, client), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// withTimeout bounds ctx by cfg.Timeout; zero disables the limit
func withTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Timeout)
}

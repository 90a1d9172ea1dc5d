package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lehigh-university-libraries/medreport/internal/providers"
)

const (
	// DefaultBaseURL is where LM Studio serves its OpenAI-compatible API
	DefaultBaseURL = "http://localhost:1234/v1"

	// local servers ignore the key, but the SDK always sends one
	placeholderAPIKey = "local"

	schemaName = "medical_report_summary"
)

// OpenAI is a provider for OpenAI-compatible local servers
// (LM Studio, llama.cpp server, vLLM)
type OpenAI struct {
	baseURL string
	client  sdk.Client
}

// New returns a new OpenAI-compatible provider
func New(baseURL string, httpClient *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/") + "/"

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(placeholderAPIKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAI{
		baseURL: baseURL,
		client:  sdk.NewClient(opts...),
	}
}

// Name returns the provider identifier
func (o *OpenAI) Name() string {
	return "openai"
}

// Chat sends the prompt as a single user message and returns the model's reply
func (o *OpenAI) Chat(ctx context.Context, config providers.Config) (string, error) {
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(config.Model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(config.Prompt),
		},
		Temperature: sdk.Float(config.Temperature),
	}

	if config.Format != providers.FormatJSON && config.Schema != nil {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &sdk.ResponseFormatJSONSchemaParam{
				JSONSchema: sdk.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: config.Schema,
					Strict: sdk.Bool(false),
				},
			},
		}
	} else {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &sdk.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to call chat completions API at %s: %w", o.baseURL, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from %s", o.baseURL)
	}

	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the models the server advertises. Sizes are not
// part of the OpenAI API and are reported as zero.
func (o *OpenAI) ListModels(ctx context.Context) ([]providers.Model, error) {
	page, err := o.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models at %s: %w", o.baseURL, err)
	}
	if page == nil {
		return nil, fmt.Errorf("models list returned nil response")
	}

	models := make([]providers.Model, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, providers.Model{Name: m.ID})
	}
	return models, nil
}

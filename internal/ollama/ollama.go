package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/medreport/internal/providers"
)

const defaultHost = "http://localhost:11434"

// Ollama is a provider for a local Ollama server
type Ollama struct {
	host   string
	client *http.Client
}

// New returns a new Ollama provider. An empty host falls back to ResolveHost.
func New(host string, client *http.Client) *Ollama {
	if host == "" {
		host = ResolveHost()
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Ollama{
		host:   normalizeHost(host),
		client: client,
	}
}

// ResolveHost returns the Ollama base URL from OLLAMA_URL or OLLAMA_HOST,
// defaulting to the local server
func ResolveHost() string {
	ollamaHost := os.Getenv("OLLAMA_URL")
	if ollamaHost == "" {
		ollamaHost = os.Getenv("OLLAMA_HOST")
	}
	if ollamaHost == "" {
		ollamaHost = defaultHost
	}
	return normalizeHost(ollamaHost)
}

// normalizeHost accepts OLLAMA_HOST style values such as "0.0.0.0:11434"
func normalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host
}

// Host returns the base URL requests are sent to
func (o *Ollama) Host() string {
	return o.host
}

// Name returns the provider identifier
func (o *Ollama) Name() string {
	return "ollama"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Stream   bool           `json:"stream"`
	Format   any            `json:"format,omitempty"`
	Messages []chatMessage  `json:"messages"`
	Options  map[string]any `json:"options,omitempty"`
}

// Chat sends the prompt as a single user message and returns the model's reply
func (o *Ollama) Chat(ctx context.Context, config providers.Config) (string, error) {
	var format any = "json"
	if config.Format != providers.FormatJSON && config.Schema != nil {
		format = config.Schema
	}

	requestBody, err := json.Marshal(chatRequest{
		Model:  config.Model,
		Stream: false,
		Format: format,
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: config.Prompt,
			},
		},
		Options: map[string]any{
			"temperature": config.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/chat", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call Ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response struct {
		Message chatMessage `json:"message"`
		Error   string      `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode Ollama response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("ollama returned an error: %s", response.Error)
	}

	return response.Message.Content, nil
}

// ListModels returns the models installed on the server
func (o *Ollama) ListModels(ctx context.Context) ([]providers.Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
			Size int64  `json:"size"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama model list: %w", err)
	}

	models := make([]providers.Model, 0, len(result.Models))
	for _, m := range result.Models {
		models = append(models, providers.Model{Name: m.Name, Size: m.Size})
	}
	return models, nil
}

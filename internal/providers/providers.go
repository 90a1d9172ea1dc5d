package providers

import (
	"context"
	"fmt"
)

// FormatMode selects how the output constraint is sent to the server
type FormatMode string

const (
	// FormatSchema sends the full JSON schema as the output constraint
	FormatSchema FormatMode = "schema"
	// FormatJSON only asks for syntactically valid JSON
	FormatJSON FormatMode = "json"
)

// ParseFormatMode converts a configuration string into a FormatMode
func ParseFormatMode(s string) (FormatMode, error) {
	switch FormatMode(s) {
	case FormatSchema, FormatJSON:
		return FormatMode(s), nil
	case "":
		return FormatSchema, nil
	default:
		return "", fmt.Errorf("unsupported format mode: %s (supported: schema, json)", s)
	}
}

// Config represents a single structured chat request to an LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	Schema      map[string]any
	Format      FormatMode
}

// Model is a model available on an inference server
type Model struct {
	Name string
	// Size is the model size in bytes; zero when the server does not report it
	Size int64
}

// Provider defines the interface for a local LLM inference server
type Provider interface {
	Name() string
	Chat(ctx context.Context, config Config) (string, error)
	ListModels(ctx context.Context) ([]Model, error)
}

package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/medreport/internal/models"
)

// Output formats accepted by Render
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// ValidOutput reports whether format is a supported output format
func ValidOutput(format string) bool {
	switch format {
	case OutputText, OutputJSON, OutputYAML:
		return true
	}
	return false
}

// Render writes the summary to w in the requested format
func Render(w io.Writer, summary models.MedicalReportSummary, format string) error {
	switch format {
	case OutputText, "":
		if _, err := fmt.Fprintln(w, summary.String()); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("failed to encode summary as JSON: %w", err)
		}
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("failed to encode summary as YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to flush YAML output: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format: %s (supported: text, json, yaml)", format)
	}
	return nil
}

package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/medreport/internal/models"
)

// InvalidJSONError reports a model reply that could not be decoded as JSON
type InvalidJSONError struct {
	Raw string
	Err error
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("model did not return valid JSON: %v", e.Err)
}

func (e *InvalidJSONError) Unwrap() error {
	return e.Err
}

// SchemaError reports valid JSON that does not describe a MedicalReportSummary
type SchemaError struct {
	Raw string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("model reply does not match the %s schema: %v", schemaTitle, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Parse decodes and validates a model reply. Markdown code fences and text
// around the JSON object are tolerated, as is a record wrapped in a single
// outer key.
func Parse(raw string) (models.MedicalReportSummary, error) {
	var summary models.MedicalReportSummary

	decoded, err := decodeJSON(raw)
	if err != nil {
		return summary, &InvalidJSONError{Raw: raw, Err: err}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return summary, &SchemaError{Raw: raw, Err: fmt.Errorf("expected a JSON object, got %s", jsonKind(decoded))}
	}

	if err := validate(obj); err != nil {
		inner, unwrapped := unwrapSingleKey(obj)
		if !unwrapped {
			return summary, &SchemaError{Raw: raw, Err: err}
		}
		slog.Debug("Using record nested under a single wrapper key")
		obj = inner
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return summary, fmt.Errorf("failed to re-encode validated object: %w", err)
	}
	if err := json.Unmarshal(b, &summary); err != nil {
		return summary, &SchemaError{Raw: raw, Err: err}
	}

	summary.PatientName = strings.TrimSpace(summary.PatientName)
	summary.DateOfBirth = strings.TrimSpace(summary.DateOfBirth)
	summary.MedicalRecordNumber = strings.TrimSpace(summary.MedicalRecordNumber)
	summary.DateOfReport = strings.TrimSpace(summary.DateOfReport)
	summary.ReportSummary = strings.TrimSpace(summary.ReportSummary)

	return summary, nil
}

// decodeJSON tries the reply as is, then without code fences, then the
// first balanced {...} span it contains
func decodeJSON(raw string) (any, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return nil, errors.New("empty response")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONObject(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	var firstErr error
	for _, candidate := range candidates {
		var v any
		err := json.Unmarshal([]byte(candidate), &v)
		if err == nil {
			return v, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the language tag on the opening fence
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the first balanced JSON object in s, or ""
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func unwrapSingleKey(obj map[string]any) (map[string]any, bool) {
	if len(obj) != 1 {
		return nil, false
	}
	for _, v := range obj {
		inner, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if err := validate(inner); err != nil {
			return nil, false
		}
		return inner, true
	}
	return nil, false
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DateWarnings lists the date fields that are not valid YYYY-MM-DD dates.
// The schema does not enforce the format, so these are advisory.
func DateWarnings(summary models.MedicalReportSummary) []string {
	var warnings []string
	check := func(field, value string) {
		if !isoDate.MatchString(value) {
			warnings = append(warnings, fmt.Sprintf("%s %q is not in YYYY-MM-DD format", field, value))
			return
		}
		if _, err := time.Parse(time.DateOnly, value); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s %q is not a valid calendar date", field, value))
		}
	}
	check("date_of_birth", summary.DateOfBirth)
	check("date_of_report", summary.DateOfReport)
	return warnings
}

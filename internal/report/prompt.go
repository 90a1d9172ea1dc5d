package report

import (
	"fmt"
	"strings"
)

// DefaultInstructions asks for the five record fields and nothing else
const DefaultInstructions = `Extract to JSON the:
    patient's name,
    date of birth,
    medical record number (MRN),
    the date of the report,
    and provide a short summary of the medical report. Respond only with valid JSON. Do not write an introduction or summary.
`

// BuildPrompt combines the instructions, the document text and the output schema
// into the single user message sent to the model
func BuildPrompt(instructions, content string) (string, error) {
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions
	}

	schema, err := SchemaJSON()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s\n\nFile Content:\n%s\n\nReturn the data in JSON format that matches the following schema:\n%s",
		instructions,
		content,
		schema,
	), nil
}

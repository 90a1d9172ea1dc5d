package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/medreport/internal/models"
	"github.com/lehigh-university-libraries/medreport/internal/providers"
	"github.com/lehigh-university-libraries/medreport/internal/report"
	"github.com/lehigh-university-libraries/medreport/internal/selector"
)

// ErrFileNotFound is returned when the input document does not exist
var ErrFileNotFound = errors.New("file not found")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options tune the request sent to the model
type Options struct {
	Temperature  float64
	Format       providers.FormatMode
	Instructions string
}

// Request names the document to extract and, optionally, the model to use
type Request struct {
	Path  string
	Model string
}

// Result is a validated extraction
type Result struct {
	RunID    string
	Provider string
	Model    string
	Summary  models.MedicalReportSummary
	Raw      string
	Duration time.Duration
}

type Service struct {
	provider providers.Provider
	selector *selector.Selector
	opts     Options
}

func NewService(provider providers.Provider, sel *selector.Selector, opts Options) *Service {
	if opts.Format == "" {
		opts.Format = providers.FormatSchema
	}
	if sel == nil {
		sel = selector.New(provider, 1, 0)
	}
	return &Service{
		provider: provider,
		selector: sel,
		opts:     opts,
	}
}

// Extract runs one document through the model and validates the reply.
// A reply that is not JSON yields a *report.InvalidJSONError, one that does
// not fit the schema a *report.SchemaError; both carry the raw reply.
func (s *Service) Extract(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := slog.With("run_id", runID, "provider", s.provider.Name())

	model, err := s.selector.Resolve(ctx, req.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve model: %w", err)
	}
	logger = logger.With("model", model)

	content, err := ReadDocument(req.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Read document", "path", req.Path, "length", len(content))

	prompt, err := report.BuildPrompt(s.opts.Instructions, content)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	raw, err := s.provider.Chat(ctx, providers.Config{
		Model:       model,
		Temperature: s.opts.Temperature,
		Prompt:      prompt,
		Schema:      report.Schema(),
		Format:      s.opts.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get extraction from %s: %w", s.provider.Name(), err)
	}
	logger.Debug("Received model reply", "length", len(raw), "elapsed", time.Since(startTime))

	summary, err := report.Parse(raw)
	if err != nil {
		logger.Warn("Model reply failed validation", "err", err)
		return nil, err
	}

	for _, w := range report.DateWarnings(summary) {
		logger.Warn("Extracted date looks malformed", "detail", w)
	}

	result := &Result{
		RunID:    runID,
		Provider: s.provider.Name(),
		Model:    model,
		Summary:  summary,
		Raw:      raw,
		Duration: time.Since(startTime),
	}
	logger.Info("Extracted medical report summary", "path", req.Path, "duration", result.Duration)
	return result, nil
}

// ReadDocument reads path as UTF-8 text. A leading byte order mark is dropped.
func ReadDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w at %s", ErrFileNotFound, path)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("failed to read %s: file is not valid UTF-8 text", path)
	}
	return string(data), nil
}

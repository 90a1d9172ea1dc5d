package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/lehigh-university-libraries/medreport/internal/providers"
)

// ErrNoModels is returned when the server has no models to choose from
var ErrNoModels = errors.New("no models available on the inference server")

// Selector picks the model an extraction runs against
type Selector struct {
	provider providers.Provider
	attempts uint
	delay    time.Duration
}

// New creates a Selector. Listing models is attempted up to attempts times,
// waiting delay between tries, so a server that is still starting can be waited on.
func New(provider providers.Provider, attempts uint, delay time.Duration) *Selector {
	if attempts == 0 {
		attempts = 1
	}
	return &Selector{
		provider: provider,
		attempts: attempts,
		delay:    delay,
	}
}

// Resolve returns requested unchanged when set, otherwise the largest model
// on the server
func (s *Selector) Resolve(ctx context.Context, requested string) (string, error) {
	if requested = strings.TrimSpace(requested); requested != "" {
		slog.Debug("Using requested model", "provider", s.provider.Name(), "model", requested)
		return requested, nil
	}

	models, err := s.Models(ctx)
	if err != nil {
		return "", err
	}

	chosen, err := Largest(models)
	if err != nil {
		return "", err
	}

	slog.Info("Selected model", "provider", s.provider.Name(), "model", chosen.Name, "size_bytes", chosen.Size, "candidates", len(models))
	return chosen.Name, nil
}

// Models lists the server's models, retrying failed requests
func (s *Selector) Models(ctx context.Context) ([]providers.Model, error) {
	models, err := retry.DoWithData(
		func() ([]providers.Model, error) {
			return s.provider.ListModels(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Listing models failed, retrying", "provider", s.provider.Name(), "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}

// Largest returns the model with the greatest size in bytes. Ties are broken
// by name so the choice is stable across calls.
func Largest(models []providers.Model) (providers.Model, error) {
	if len(models) == 0 {
		return providers.Model{}, ErrNoModels
	}

	sorted := make([]providers.Model, len(models))
	copy(sorted, models)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Size != sorted[j].Size {
			return sorted[i].Size > sorted[j].Size
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted[0], nil
}

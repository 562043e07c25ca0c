package mealtimings

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
)

// Service manages per-client meal timing registries.
type Service struct {
	storage  storage.MealTimingsStorage
	maxMeals int
}

func NewService(st storage.MealTimingsStorage, maxMeals int) *Service {
	return &Service{storage: st, maxMeals: maxMeals}
}

// Get returns the client's current timings. Clients created before the
// registry existed fall back to the default template.
func (s *Service) Get(ctx context.Context, clientID uuid.UUID) ([]Timing, error) {
	rows, err := s.storage.GetMealTimings(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get meal timings: %w", err)
	}
	if len(rows) == 0 {
		return DefaultTimings(), nil
	}
	return fromRows(rows), nil
}

// Replace validates and persists a new timing list for the client.
// The change is client-global: every week loaded afterwards is
// re-projected against the new structure.
func (s *Service) Replace(ctx context.Context, clientID uuid.UUID, timings []Timing) ([]Timing, error) {
	if err := ValidateTimings(timings, s.maxMeals); err != nil {
		return nil, err
	}
	if err := s.storage.ReplaceMealTimings(ctx, clientID, toRows(clientID, timings)); err != nil {
		return nil, fmt.Errorf("replace meal timings: %w", err)
	}
	return timings, nil
}

// SeedDefaults installs the default template for a freshly created client.
func (s *Service) SeedDefaults(ctx context.Context, clientID uuid.UUID) error {
	timings := DefaultTimings()
	if err := s.storage.ReplaceMealTimings(ctx, clientID, toRows(clientID, timings)); err != nil {
		return fmt.Errorf("seed meal timings: %w", err)
	}
	return nil
}

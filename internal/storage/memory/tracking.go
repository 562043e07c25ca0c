package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
)

func (m *MemoryStorage) UpsertWeight(ctx context.Context, entry *storage.WeightEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entry.ClientID.String() + "|" + entry.Date
	if existing, ok := m.weights[key]; ok {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	} else {
		entry.ID = uuid.New()
		entry.CreatedAt = time.Now()
	}
	entry.UpdatedAt = time.Now()
	m.weights[key] = *entry
	return nil
}

func (m *MemoryStorage) ListWeights(ctx context.Context, clientID uuid.UUID, from, to string) ([]storage.WeightEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.WeightEntry, 0)
	for _, e := range m.weights {
		if e.ClientID != clientID {
			continue
		}
		if from != "" && e.Date < from {
			continue
		}
		if to != "" && e.Date > to {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *MemoryStorage) AddWater(ctx context.Context, entry *storage.WaterEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	m.water = append(m.water, *entry)
	return nil
}

func (m *MemoryStorage) GetWaterDaily(ctx context.Context, clientID uuid.UUID, date string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, e := range m.water {
		if e.ClientID == clientID && e.TakenAt.UTC().Format("2006-01-02") == date {
			total += e.AmountMl
		}
	}
	return total, nil
}

func (m *MemoryStorage) UpsertMealLog(ctx context.Context, entry *storage.MealLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s|%s|%d", entry.ClientID, entry.Date, entry.MealNumber)
	if existing, ok := m.mealLogs[key]; ok {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	} else {
		entry.ID = uuid.New()
		entry.CreatedAt = time.Now()
	}
	entry.UpdatedAt = time.Now()
	m.mealLogs[key] = *entry
	return nil
}

func (m *MemoryStorage) ListMealLogs(ctx context.Context, clientID uuid.UUID, date string) ([]storage.MealLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.MealLogEntry, 0)
	for _, e := range m.mealLogs {
		if e.ClientID == clientID && e.Date == date {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MealNumber < out[j].MealNumber })
	return out, nil
}

func (m *MemoryStorage) CreateMeasurement(ctx context.Context, entry *storage.MeasurementEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = time.Now()
	m.measurements[entry.ID] = *entry
	return nil
}

func (m *MemoryStorage) ListMeasurements(ctx context.Context, clientID uuid.UUID, from, to string) ([]storage.MeasurementEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.MeasurementEntry, 0)
	for _, e := range m.measurements {
		if e.ClientID != clientID {
			continue
		}
		if from != "" && e.Date < from {
			continue
		}
		if to != "" && e.Date > to {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *MemoryStorage) GetMeasurement(ctx context.Context, id uuid.UUID) (*storage.MeasurementEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.measurements[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *MemoryStorage) UpsertCycle(ctx context.Context, entry *storage.CycleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entry.ClientID.String() + "|" + entry.StartDate
	if existing, ok := m.cycles[key]; ok {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	} else {
		entry.ID = uuid.New()
		entry.CreatedAt = time.Now()
	}
	entry.UpdatedAt = time.Now()
	m.cycles[key] = *entry
	return nil
}

func (m *MemoryStorage) ListCycles(ctx context.Context, clientID uuid.UUID, from, to string) ([]storage.CycleEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.CycleEntry, 0)
	for _, e := range m.cycles {
		if e.ClientID != clientID {
			continue
		}
		if from != "" && e.StartDate < from {
			continue
		}
		if to != "" && e.StartDate > to {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate < out[j].StartDate })
	return out, nil
}

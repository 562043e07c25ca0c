package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
)

var ErrNotFound = storage.ErrNotFound

// MemoryStorage is the in-memory implementation of all storage
// interfaces. Used for local development and tests; state is lost on
// restart.
type MemoryStorage struct {
	mu sync.RWMutex

	clients     map[uuid.UUID]storage.Client
	mealTimings map[uuid.UUID][]storage.MealTimingRow

	weeks       map[string]storage.WeekRecord // clientID|startDate
	weekBuffers map[uuid.UUID]storage.WeekBufferRow

	weights      map[string]storage.WeightEntry // clientID|date
	water        []storage.WaterEntry
	mealLogs     map[string]storage.MealLogEntry // clientID|date|mealNumber
	measurements map[uuid.UUID]storage.MeasurementEntry
	cycles       map[string]storage.CycleEntry // clientID|startDate

	packages      map[uuid.UUID]storage.SubscriptionPackage
	subscriptions map[uuid.UUID]storage.Subscription

	followups     map[uuid.UUID]storage.Followup
	notifications map[uuid.UUID]storage.Notification
}

// New creates an empty MemoryStorage.
func New() *MemoryStorage {
	return &MemoryStorage{
		clients:       make(map[uuid.UUID]storage.Client),
		mealTimings:   make(map[uuid.UUID][]storage.MealTimingRow),
		weeks:         make(map[string]storage.WeekRecord),
		weekBuffers:   make(map[uuid.UUID]storage.WeekBufferRow),
		weights:       make(map[string]storage.WeightEntry),
		water:         make([]storage.WaterEntry, 0),
		mealLogs:      make(map[string]storage.MealLogEntry),
		measurements:  make(map[uuid.UUID]storage.MeasurementEntry),
		cycles:        make(map[string]storage.CycleEntry),
		packages:      make(map[uuid.UUID]storage.SubscriptionPackage),
		subscriptions: make(map[uuid.UUID]storage.Subscription),
		followups:     make(map[uuid.UUID]storage.Followup),
		notifications: make(map[uuid.UUID]storage.Notification),
	}
}

func (m *MemoryStorage) ListClients(ctx context.Context, dieticianID uuid.UUID, includeArchived bool) ([]storage.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients := make([]storage.Client, 0)
	for _, c := range m.clients {
		if c.DieticianID != dieticianID {
			continue
		}
		if c.IsArchived && !includeArchived {
			continue
		}
		clients = append(clients, c)
	}
	return clients, nil
}

func (m *MemoryStorage) GetClient(ctx context.Context, id uuid.UUID) (*storage.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryStorage) CreateClient(ctx context.Context, client *storage.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	client.CreatedAt = time.Now()
	client.UpdatedAt = time.Now()
	m.clients[client.ID] = *client
	return nil
}

func (m *MemoryStorage) UpdateClient(ctx context.Context, client *storage.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[client.ID]; !ok {
		return ErrNotFound
	}
	client.UpdatedAt = time.Now()
	m.clients[client.ID] = *client
	return nil
}

func (m *MemoryStorage) ArchiveClient(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clients[id]
	if !ok {
		return ErrNotFound
	}
	c.IsArchived = true
	c.UpdatedAt = time.Now()
	m.clients[id] = c
	return nil
}

func (m *MemoryStorage) GetMealTimings(ctx context.Context, clientID uuid.UUID) ([]storage.MealTimingRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.mealTimings[clientID]
	out := make([]storage.MealTimingRow, len(rows))
	copy(out, rows)
	return out, nil
}

func (m *MemoryStorage) ReplaceMealTimings(ctx context.Context, clientID uuid.UUID, timings []storage.MealTimingRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]storage.MealTimingRow, len(timings))
	copy(rows, timings)
	m.mealTimings[clientID] = rows
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

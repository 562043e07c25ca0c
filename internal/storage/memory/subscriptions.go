package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
)

func (m *MemoryStorage) ListPackages(ctx context.Context, onlyActive bool) ([]storage.SubscriptionPackage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.SubscriptionPackage, 0)
	for _, p := range m.packages {
		if onlyActive && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out, nil
}

func (m *MemoryStorage) GetPackage(ctx context.Context, id uuid.UUID) (*storage.SubscriptionPackage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.packages[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStorage) CreatePackage(ctx context.Context, pkg *storage.SubscriptionPackage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pkg.ID == uuid.Nil {
		pkg.ID = uuid.New()
	}
	pkg.CreatedAt = time.Now()
	pkg.UpdatedAt = time.Now()
	m.packages[pkg.ID] = *pkg
	return nil
}

func (m *MemoryStorage) CreateSubscription(ctx context.Context, sub *storage.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = time.Now()
	m.subscriptions[sub.ID] = *sub
	return nil
}

func (m *MemoryStorage) GetSubscription(ctx context.Context, id uuid.UUID) (*storage.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.subscriptions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStorage) ListSubscriptions(ctx context.Context, clientID uuid.UUID) ([]storage.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.Subscription, 0)
	for _, s := range m.subscriptions {
		if s.ClientID == clientID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStorage) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status string, startsAt, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.subscriptions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	if startsAt != nil {
		s.StartsAt = startsAt
	}
	if expiresAt != nil {
		s.ExpiresAt = expiresAt
	}
	s.UpdatedAt = time.Now()
	m.subscriptions[id] = s
	return nil
}

package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
)

func (m *MemoryStorage) CreateFollowup(ctx context.Context, f *storage.Followup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.CreatedAt = time.Now()
	f.UpdatedAt = time.Now()
	m.followups[f.ID] = *f
	return nil
}

func (m *MemoryStorage) GetFollowup(ctx context.Context, id uuid.UUID) (*storage.Followup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.followups[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (m *MemoryStorage) ListFollowups(ctx context.Context, dieticianID uuid.UUID, clientID *uuid.UUID, from, to time.Time) ([]storage.Followup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.Followup, 0)
	for _, f := range m.followups {
		if f.DieticianID != dieticianID {
			continue
		}
		if clientID != nil && f.ClientID != *clientID {
			continue
		}
		if !from.IsZero() && f.ScheduledAt.Before(from) {
			continue
		}
		if !to.IsZero() && f.ScheduledAt.After(to) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (m *MemoryStorage) UpdateFollowup(ctx context.Context, f *storage.Followup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.followups[f.ID]
	if !ok {
		return ErrNotFound
	}
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = time.Now()
	m.followups[f.ID] = *f
	return nil
}

func (m *MemoryStorage) ListDueReminders(ctx context.Context, until time.Time) ([]storage.Followup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	out := make([]storage.Followup, 0)
	for _, f := range m.followups {
		if f.Status != storage.FollowupScheduled || f.ReminderSentAt != nil {
			continue
		}
		if f.ScheduledAt.After(now) && f.ScheduledAt.Before(until) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *MemoryStorage) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.followups[id]
	if !ok {
		return ErrNotFound
	}
	f.ReminderSentAt = &at
	f.UpdatedAt = time.Now()
	m.followups[id] = f
	return nil
}

package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
)

func (m *MemoryStorage) CreateNotification(ctx context.Context, n *storage.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	m.notifications[n.ID] = *n
	return nil
}

func (m *MemoryStorage) ListNotifications(ctx context.Context, clientID uuid.UUID, onlyUnread bool, limit, offset int) ([]storage.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]storage.Notification, 0)
	for _, n := range m.notifications {
		if n.ClientID != clientID {
			continue
		}
		if onlyUnread && n.ReadAt != nil {
			continue
		}
		all = append(all, n)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return []storage.Notification{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryStorage) UnreadCount(ctx context.Context, clientID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, n := range m.notifications {
		if n.ClientID == clientID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStorage) MarkRead(ctx context.Context, clientID uuid.UUID, ids []uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	marked := 0
	for _, id := range ids {
		n, ok := m.notifications[id]
		if !ok || n.ClientID != clientID || n.ReadAt != nil {
			continue
		}
		n.ReadAt = &now
		m.notifications[id] = n
		marked++
	}
	return marked, nil
}

func (m *MemoryStorage) MarkAllRead(ctx context.Context, clientID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	marked := 0
	for id, n := range m.notifications {
		if n.ClientID != clientID || n.ReadAt != nil {
			continue
		}
		n.ReadAt = &now
		m.notifications[id] = n
		marked++
	}
	return marked, nil
}

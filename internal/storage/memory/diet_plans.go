package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
)

func weekKey(clientID uuid.UUID, startDate string) string {
	return clientID.String() + "|" + startDate
}

func (m *MemoryStorage) GetWeek(ctx context.Context, clientID uuid.UUID, startDate string) (*storage.WeekRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.weeks[weekKey(clientID, startDate)]
	if !ok {
		return nil, nil
	}
	out := rec
	out.Days = append([]byte(nil), rec.Days...)
	return &out, nil
}

// UpsertWeek applies the write only when the incoming revision is
// strictly greater than the stored one. Returns the authoritative
// revision and whether the write landed.
func (m *MemoryStorage) UpsertWeek(ctx context.Context, rec *storage.WeekRecord) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := weekKey(rec.ClientID, rec.StartDate)
	existing, ok := m.weeks[key]
	if ok && rec.Revision <= existing.Revision {
		return existing.Revision, false, nil
	}

	stored := *rec
	stored.Days = append([]byte(nil), rec.Days...)
	if ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = uuid.New()
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	m.weeks[key] = stored
	return stored.Revision, true, nil
}

func (m *MemoryStorage) ListWeeks(ctx context.Context, clientID uuid.UUID, from, to string) ([]storage.WeekRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.WeekRecord, 0)
	for _, rec := range m.weeks {
		if rec.ClientID != clientID {
			continue
		}
		if from != "" && rec.StartDate < from {
			continue
		}
		if to != "" && rec.StartDate > to {
			continue
		}
		rec.Days = append([]byte(nil), rec.Days...)
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryStorage) GetWeekBuffer(ctx context.Context, dieticianID uuid.UUID) (*storage.WeekBufferRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.weekBuffers[dieticianID]
	if !ok {
		return nil, nil
	}
	out := row
	out.Days = append([]byte(nil), row.Days...)
	return &out, nil
}

func (m *MemoryStorage) PutWeekBuffer(ctx context.Context, row *storage.WeekBufferRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *row
	stored.Days = append([]byte(nil), row.Days...)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.weekBuffers[row.DieticianID] = stored
	return nil
}

func (m *MemoryStorage) ClearWeekBuffer(ctx context.Context, dieticianID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.weekBuffers, dieticianID)
	return nil
}

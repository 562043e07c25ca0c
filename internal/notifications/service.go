package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
)

// Inbox entry kinds.
const (
	KindDietPublished = "diet_published"
	KindFollowupDue   = "followup_due"
)

var ErrInvalidInput = errors.New("invalid input")

const (
	defaultLimit = 50
	maxLimit     = 200
)

// NotificationDTO is the wire shape of an inbox entry.
type NotificationDTO struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	CreatedAt string  `json:"created_at"`
	ReadAt    *string `json:"read_at,omitempty"`
}

type Service struct {
	storage storage.NotificationsStorage
}

func NewService(st storage.NotificationsStorage) *Service {
	return &Service{storage: st}
}

func (s *Service) List(ctx context.Context, clientID uuid.UUID, onlyUnread bool, limit, offset int) ([]NotificationDTO, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.storage.ListNotifications(ctx, clientID, onlyUnread, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]NotificationDTO, 0, len(list))
	for i := range list {
		out = append(out, toDTO(&list[i]))
	}
	return out, nil
}

func (s *Service) UnreadCount(ctx context.Context, clientID uuid.UUID) (int, error) {
	return s.storage.UnreadCount(ctx, clientID)
}

func (s *Service) MarkRead(ctx context.Context, clientID uuid.UUID, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids must not be empty", ErrInvalidInput)
	}
	return s.storage.MarkRead(ctx, clientID, ids)
}

func (s *Service) MarkAllRead(ctx context.Context, clientID uuid.UUID) (int, error) {
	return s.storage.MarkAllRead(ctx, clientID)
}

func toDTO(n *storage.Notification) NotificationDTO {
	dto := NotificationDTO{
		ID:        n.ID.String(),
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		readAt := n.ReadAt.Format(time.RFC3339)
		dto.ReadAt = &readAt
	}
	return dto
}

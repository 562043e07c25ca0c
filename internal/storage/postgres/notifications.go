package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
)

func (p *PostgresStorage) CreateNotification(ctx context.Context, n *storage.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()

	query := `
		INSERT INTO notifications (id, client_id, kind, title, body, created_at, read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := p.pool.Exec(ctx, query, n.ID, n.ClientID, n.Kind, n.Title, n.Body, n.CreatedAt, n.ReadAt)
	return err
}

func (p *PostgresStorage) ListNotifications(ctx context.Context, clientID uuid.UUID, onlyUnread bool, limit, offset int) ([]storage.Notification, error) {
	query := `
		SELECT id, client_id, kind, title, body, created_at, read_at
		FROM notifications
		WHERE client_id = $1
	`
	if onlyUnread {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := p.pool.Query(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []storage.Notification{}
	for rows.Next() {
		var n storage.Notification
		if err := rows.Scan(&n.ID, &n.ClientID, &n.Kind, &n.Title, &n.Body, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (p *PostgresStorage) UnreadCount(ctx context.Context, clientID uuid.UUID) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE client_id = $1 AND read_at IS NULL`,
		clientID,
	).Scan(&count)
	return count, err
}

func (p *PostgresStorage) MarkRead(ctx context.Context, clientID uuid.UUID, ids []uuid.UUID) (int, error) {
	query := `
		UPDATE notifications
		SET read_at = $3
		WHERE client_id = $1 AND id = ANY($2) AND read_at IS NULL
	`
	result, err := p.pool.Exec(ctx, query, clientID, ids, time.Now())
	if err != nil {
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

func (p *PostgresStorage) MarkAllRead(ctx context.Context, clientID uuid.UUID) (int, error) {
	query := `
		UPDATE notifications
		SET read_at = $2
		WHERE client_id = $1 AND read_at IS NULL
	`
	result, err := p.pool.Exec(ctx, query, clientID, time.Now())
	if err != nil {
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nutrivibes/api/internal/storage"
)

func (p *PostgresStorage) CreateFollowup(ctx context.Context, f *storage.Followup) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now

	query := `
		INSERT INTO followups (id, dietician_id, client_id, scheduled_at, status, note, reminder_sent_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err := p.pool.Exec(ctx, query, f.ID, f.DieticianID, f.ClientID, f.ScheduledAt,
		f.Status, f.Note, f.ReminderSentAt, now)
	return err
}

func (p *PostgresStorage) GetFollowup(ctx context.Context, id uuid.UUID) (*storage.Followup, error) {
	query := `
		SELECT id, dietician_id, client_id, scheduled_at, status, note, reminder_sent_at, created_at, updated_at
		FROM followups
		WHERE id = $1
	`
	var f storage.Followup
	err := p.pool.QueryRow(ctx, query, id).Scan(&f.ID, &f.DieticianID, &f.ClientID, &f.ScheduledAt,
		&f.Status, &f.Note, &f.ReminderSentAt, &f.CreatedAt, &f.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (p *PostgresStorage) ListFollowups(ctx context.Context, dieticianID uuid.UUID, clientID *uuid.UUID, from, to time.Time) ([]storage.Followup, error) {
	query := `
		SELECT id, dietician_id, client_id, scheduled_at, status, note, reminder_sent_at, created_at, updated_at
		FROM followups
		WHERE dietician_id = $1 AND scheduled_at >= $2 AND scheduled_at <= $3
		  AND ($4::uuid IS NULL OR client_id = $4)
		ORDER BY scheduled_at ASC
	`
	rows, err := p.pool.Query(ctx, query, dieticianID, from, to, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	followups := []storage.Followup{}
	for rows.Next() {
		var f storage.Followup
		err := rows.Scan(&f.ID, &f.DieticianID, &f.ClientID, &f.ScheduledAt,
			&f.Status, &f.Note, &f.ReminderSentAt, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, err
		}
		followups = append(followups, f)
	}
	return followups, rows.Err()
}

func (p *PostgresStorage) UpdateFollowup(ctx context.Context, f *storage.Followup) error {
	f.UpdatedAt = time.Now()

	query := `
		UPDATE followups
		SET scheduled_at = $2, status = $3, note = $4, reminder_sent_at = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := p.pool.Exec(ctx, query, f.ID, f.ScheduledAt, f.Status, f.Note, f.ReminderSentAt, f.UpdatedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) ListDueReminders(ctx context.Context, until time.Time) ([]storage.Followup, error) {
	query := `
		SELECT id, dietician_id, client_id, scheduled_at, status, note, reminder_sent_at, created_at, updated_at
		FROM followups
		WHERE status = $1 AND reminder_sent_at IS NULL
		  AND scheduled_at > now() AND scheduled_at < $2
	`
	rows, err := p.pool.Query(ctx, query, storage.FollowupScheduled, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	followups := []storage.Followup{}
	for rows.Next() {
		var f storage.Followup
		err := rows.Scan(&f.ID, &f.DieticianID, &f.ClientID, &f.ScheduledAt,
			&f.Status, &f.Note, &f.ReminderSentAt, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, err
		}
		followups = append(followups, f)
	}
	return followups, rows.Err()
}

func (p *PostgresStorage) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE followups SET reminder_sent_at = $2, updated_at = $3 WHERE id = $1`
	result, err := p.pool.Exec(ctx, query, id, at, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nutrivibes/api/internal/storage"
)

func (p *PostgresStorage) GetWeek(ctx context.Context, clientID uuid.UUID, startDate string) (*storage.WeekRecord, error) {
	query := `
		SELECT id, dietician_id, client_id, start_date, days, revision, created_at, updated_at
		FROM diet_weeks
		WHERE client_id = $1 AND start_date = $2
	`
	var rec storage.WeekRecord
	err := p.pool.QueryRow(ctx, query, clientID, startDate).Scan(
		&rec.ID,
		&rec.DieticianID,
		&rec.ClientID,
		&rec.StartDate,
		&rec.Days,
		&rec.Revision,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertWeek writes a week guarded by revision. The ON CONFLICT update
// only fires when the incoming revision is strictly newer; the stored
// revision is read back in the same transaction to report whether the
// write was applied.
func (p *PostgresStorage) UpsertWeek(ctx context.Context, rec *storage.WeekRecord) (int64, bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO diet_weeks (id, dietician_id, client_id, start_date, days, revision, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (client_id, start_date) DO UPDATE
		SET days = EXCLUDED.days,
		    revision = EXCLUDED.revision,
		    updated_at = EXCLUDED.updated_at
		WHERE diet_weeks.revision < EXCLUDED.revision
	`
	result, err := tx.Exec(ctx, query,
		rec.ID,
		rec.DieticianID,
		rec.ClientID,
		rec.StartDate,
		rec.Days,
		rec.Revision,
		now,
	)
	if err != nil {
		return 0, false, err
	}
	applied := result.RowsAffected() > 0

	var authoritative int64
	err = tx.QueryRow(ctx,
		`SELECT revision FROM diet_weeks WHERE client_id = $1 AND start_date = $2`,
		rec.ClientID, rec.StartDate,
	).Scan(&authoritative)
	if err != nil {
		return 0, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, false, err
	}
	return authoritative, applied, nil
}

func (p *PostgresStorage) ListWeeks(ctx context.Context, clientID uuid.UUID, from, to string) ([]storage.WeekRecord, error) {
	query := `
		SELECT id, dietician_id, client_id, start_date, days, revision, created_at, updated_at
		FROM diet_weeks
		WHERE client_id = $1 AND start_date >= $2 AND start_date <= $3
		ORDER BY start_date ASC
	`
	rows, err := p.pool.Query(ctx, query, clientID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weeks := []storage.WeekRecord{}
	for rows.Next() {
		var rec storage.WeekRecord
		err := rows.Scan(
			&rec.ID,
			&rec.DieticianID,
			&rec.ClientID,
			&rec.StartDate,
			&rec.Days,
			&rec.Revision,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, rec)
	}
	return weeks, rows.Err()
}

func (p *PostgresStorage) GetWeekBuffer(ctx context.Context, dieticianID uuid.UUID) (*storage.WeekBufferRow, error) {
	query := `
		SELECT dietician_id, days, copied_from, created_at
		FROM week_buffers
		WHERE dietician_id = $1
	`
	var row storage.WeekBufferRow
	err := p.pool.QueryRow(ctx, query, dieticianID).Scan(
		&row.DieticianID,
		&row.Days,
		&row.CopiedFrom,
		&row.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (p *PostgresStorage) PutWeekBuffer(ctx context.Context, row *storage.WeekBufferRow) error {
	row.CreatedAt = time.Now()
	query := `
		INSERT INTO week_buffers (dietician_id, days, copied_from, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dietician_id) DO UPDATE
		SET days = EXCLUDED.days,
		    copied_from = EXCLUDED.copied_from,
		    created_at = EXCLUDED.created_at
	`
	_, err := p.pool.Exec(ctx, query, row.DieticianID, row.Days, row.CopiedFrom, row.CreatedAt)
	return err
}

func (p *PostgresStorage) ClearWeekBuffer(ctx context.Context, dieticianID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM week_buffers WHERE dietician_id = $1`, dieticianID)
	return err
}

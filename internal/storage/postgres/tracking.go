package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nutrivibes/api/internal/storage"
)

func (p *PostgresStorage) UpsertWeight(ctx context.Context, entry *storage.WeightEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	query := `
		INSERT INTO weight_entries (id, client_id, entry_date, weight_kg, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (client_id, entry_date) DO UPDATE
		SET weight_kg = EXCLUDED.weight_kg,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := p.pool.Exec(ctx, query, entry.ID, entry.ClientID, entry.Date, entry.WeightKg, now)
	return err
}

func (p *PostgresStorage) ListWeights(ctx context.Context, clientID uuid.UUID, from, to string) ([]storage.WeightEntry, error) {
	query := `
		SELECT id, client_id, entry_date, weight_kg, created_at, updated_at
		FROM weight_entries
		WHERE client_id = $1 AND entry_date >= $2 AND entry_date <= $3
		ORDER BY entry_date ASC
	`
	rows, err := p.pool.Query(ctx, query, clientID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []storage.WeightEntry{}
	for rows.Next() {
		var e storage.WeightEntry
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Date, &e.WeightKg, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *PostgresStorage) AddWater(ctx context.Context, entry *storage.WaterEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO water_entries (id, client_id, taken_at, amount_ml, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := p.pool.Exec(ctx, query, entry.ID, entry.ClientID, entry.TakenAt, entry.AmountMl, entry.CreatedAt)
	return err
}

func (p *PostgresStorage) GetWaterDaily(ctx context.Context, clientID uuid.UUID, date string) (int, error) {
	query := `
		SELECT COALESCE(SUM(amount_ml), 0)
		FROM water_entries
		WHERE client_id = $1 AND taken_at::date = $2::date
	`
	var total int
	if err := p.pool.QueryRow(ctx, query, clientID, date).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (p *PostgresStorage) UpsertMealLog(ctx context.Context, entry *storage.MealLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	query := `
		INSERT INTO meal_logs (id, client_id, entry_date, meal_number, status, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (client_id, entry_date, meal_number) DO UPDATE
		SET status = EXCLUDED.status,
		    note = EXCLUDED.note,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := p.pool.Exec(ctx, query, entry.ID, entry.ClientID, entry.Date, entry.MealNumber, entry.Status, entry.Note, now)
	return err
}

func (p *PostgresStorage) ListMealLogs(ctx context.Context, clientID uuid.UUID, date string) ([]storage.MealLogEntry, error) {
	query := `
		SELECT id, client_id, entry_date, meal_number, status, note, created_at, updated_at
		FROM meal_logs
		WHERE client_id = $1 AND entry_date = $2
		ORDER BY meal_number ASC
	`
	rows, err := p.pool.Query(ctx, query, clientID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []storage.MealLogEntry{}
	for rows.Next() {
		var e storage.MealLogEntry
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Date, &e.MealNumber, &e.Status, &e.Note, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *PostgresStorage) CreateMeasurement(ctx context.Context, entry *storage.MeasurementEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	query := `
		INSERT INTO measurement_entries (id, client_id, entry_date, chest_cm, waist_cm, hips_cm,
		                                 photo_key, photo_mime, photo_size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err := p.pool.Exec(ctx, query,
		entry.ID,
		entry.ClientID,
		entry.Date,
		entry.ChestCm,
		entry.WaistCm,
		entry.HipsCm,
		entry.PhotoKey,
		entry.PhotoMime,
		entry.PhotoSize,
		now,
	)
	return err
}

func (p *PostgresStorage) ListMeasurements(ctx context.Context, clientID uuid.UUID, from, to string) ([]storage.MeasurementEntry, error) {
	query := `
		SELECT id, client_id, entry_date, chest_cm, waist_cm, hips_cm,
		       photo_key, photo_mime, photo_size, created_at, updated_at
		FROM measurement_entries
		WHERE client_id = $1 AND entry_date >= $2 AND entry_date <= $3
		ORDER BY entry_date ASC, created_at ASC
	`
	rows, err := p.pool.Query(ctx, query, clientID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []storage.MeasurementEntry{}
	for rows.Next() {
		var e storage.MeasurementEntry
		err := rows.Scan(&e.ID, &e.ClientID, &e.Date, &e.ChestCm, &e.WaistCm, &e.HipsCm,
			&e.PhotoKey, &e.PhotoMime, &e.PhotoSize, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *PostgresStorage) GetMeasurement(ctx context.Context, id uuid.UUID) (*storage.MeasurementEntry, error) {
	query := `
		SELECT id, client_id, entry_date, chest_cm, waist_cm, hips_cm,
		       photo_key, photo_mime, photo_size, created_at, updated_at
		FROM measurement_entries
		WHERE id = $1
	`
	var e storage.MeasurementEntry
	err := p.pool.QueryRow(ctx, query, id).Scan(&e.ID, &e.ClientID, &e.Date, &e.ChestCm, &e.WaistCm, &e.HipsCm,
		&e.PhotoKey, &e.PhotoMime, &e.PhotoSize, &e.CreatedAt, &e.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (p *PostgresStorage) UpsertCycle(ctx context.Context, entry *storage.CycleEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	query := `
		INSERT INTO cycle_entries (id, client_id, start_date, end_date, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (client_id, start_date) DO UPDATE
		SET end_date = EXCLUDED.end_date,
		    note = EXCLUDED.note,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := p.pool.Exec(ctx, query, entry.ID, entry.ClientID, entry.StartDate, entry.EndDate, entry.Note, now)
	return err
}

func (p *PostgresStorage) ListCycles(ctx context.Context, clientID uuid.UUID, from, to string) ([]storage.CycleEntry, error) {
	query := `
		SELECT id, client_id, start_date, end_date, note, created_at, updated_at
		FROM cycle_entries
		WHERE client_id = $1 AND start_date >= $2 AND start_date <= $3
		ORDER BY start_date ASC
	`
	rows, err := p.pool.Query(ctx, query, clientID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []storage.CycleEntry{}
	for rows.Next() {
		var e storage.CycleEntry
		if err := rows.Scan(&e.ID, &e.ClientID, &e.StartDate, &e.EndDate, &e.Note, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

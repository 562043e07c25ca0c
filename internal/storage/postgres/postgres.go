package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutrivibes/api/internal/storage"
)

// PostgresStorage implements every storage interface on a pgx pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStorage{pool: pool}, nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStorage) ListClients(ctx context.Context, dieticianID uuid.UUID, includeArchived bool) ([]storage.Client, error) {
	query := `
		SELECT id, dietician_id, full_name, email, phone, birth_date, sex, height_cm,
		       goal, allergies, notes, is_archived, created_at, updated_at
		FROM clients
		WHERE dietician_id = $1
	`
	if !includeArchived {
		query += ` AND is_archived = false`
	}
	query += ` ORDER BY full_name ASC`

	rows, err := p.pool.Query(ctx, query, dieticianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []storage.Client{}
	for rows.Next() {
		var c storage.Client
		if err := scanClient(rows, &c); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (p *PostgresStorage) GetClient(ctx context.Context, id uuid.UUID) (*storage.Client, error) {
	query := `
		SELECT id, dietician_id, full_name, email, phone, birth_date, sex, height_cm,
		       goal, allergies, notes, is_archived, created_at, updated_at
		FROM clients
		WHERE id = $1
	`
	var c storage.Client
	err := scanClient(p.pool.QueryRow(ctx, query, id), &c)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *PostgresStorage) CreateClient(ctx context.Context, client *storage.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	now := time.Now()
	client.CreatedAt = now
	client.UpdatedAt = now

	query := `
		INSERT INTO clients (id, dietician_id, full_name, email, phone, birth_date, sex,
		                     height_cm, goal, allergies, notes, is_archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := p.pool.Exec(ctx, query,
		client.ID,
		client.DieticianID,
		client.FullName,
		client.Email,
		client.Phone,
		client.BirthDate,
		client.Sex,
		client.HeightCm,
		client.Goal,
		client.Allergies,
		client.Notes,
		client.IsArchived,
		client.CreatedAt,
		client.UpdatedAt,
	)
	return err
}

func (p *PostgresStorage) UpdateClient(ctx context.Context, client *storage.Client) error {
	client.UpdatedAt = time.Now()

	query := `
		UPDATE clients
		SET full_name = $2, email = $3, phone = $4, birth_date = $5, sex = $6,
		    height_cm = $7, goal = $8, allergies = $9, notes = $10, updated_at = $11
		WHERE id = $1
	`
	result, err := p.pool.Exec(ctx, query,
		client.ID,
		client.FullName,
		client.Email,
		client.Phone,
		client.BirthDate,
		client.Sex,
		client.HeightCm,
		client.Goal,
		client.Allergies,
		client.Notes,
		client.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) ArchiveClient(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE clients SET is_archived = true, updated_at = $2 WHERE id = $1`
	result, err := p.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) GetMealTimings(ctx context.Context, clientID uuid.UUID) ([]storage.MealTimingRow, error) {
	query := `
		SELECT client_id, meal_number, meal_time, updated_at
		FROM meal_timings
		WHERE client_id = $1
		ORDER BY meal_number ASC
	`
	rows, err := p.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	timings := []storage.MealTimingRow{}
	for rows.Next() {
		var t storage.MealTimingRow
		if err := rows.Scan(&t.ClientID, &t.MealNumber, &t.Time, &t.UpdatedAt); err != nil {
			return nil, err
		}
		timings = append(timings, t)
	}
	return timings, rows.Err()
}

func (p *PostgresStorage) ReplaceMealTimings(ctx context.Context, clientID uuid.UUID, timings []storage.MealTimingRow) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM meal_timings WHERE client_id = $1`, clientID); err != nil {
		return err
	}
	now := time.Now()
	for _, t := range timings {
		_, err := tx.Exec(ctx,
			`INSERT INTO meal_timings (client_id, meal_number, meal_time, updated_at) VALUES ($1, $2, $3, $4)`,
			clientID, t.MealNumber, t.Time, now,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner, c *storage.Client) error {
	return row.Scan(
		&c.ID,
		&c.DieticianID,
		&c.FullName,
		&c.Email,
		&c.Phone,
		&c.BirthDate,
		&c.Sex,
		&c.HeightCm,
		&c.Goal,
		&c.Allergies,
		&c.Notes,
		&c.IsArchived,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

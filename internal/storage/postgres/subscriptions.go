package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nutrivibes/api/internal/storage"
)

func (p *PostgresStorage) ListPackages(ctx context.Context, onlyActive bool) ([]storage.SubscriptionPackage, error) {
	query := `
		SELECT id, name, description, duration_days, price_cents, currency, is_active, created_at, updated_at
		FROM packages
	`
	if onlyActive {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY price_cents ASC`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packages := []storage.SubscriptionPackage{}
	for rows.Next() {
		var pkg storage.SubscriptionPackage
		err := rows.Scan(&pkg.ID, &pkg.Name, &pkg.Description, &pkg.DurationDays,
			&pkg.PriceCents, &pkg.Currency, &pkg.IsActive, &pkg.CreatedAt, &pkg.UpdatedAt)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return packages, rows.Err()
}

func (p *PostgresStorage) GetPackage(ctx context.Context, id uuid.UUID) (*storage.SubscriptionPackage, error) {
	query := `
		SELECT id, name, description, duration_days, price_cents, currency, is_active, created_at, updated_at
		FROM packages
		WHERE id = $1
	`
	var pkg storage.SubscriptionPackage
	err := p.pool.QueryRow(ctx, query, id).Scan(&pkg.ID, &pkg.Name, &pkg.Description, &pkg.DurationDays,
		&pkg.PriceCents, &pkg.Currency, &pkg.IsActive, &pkg.CreatedAt, &pkg.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (p *PostgresStorage) CreatePackage(ctx context.Context, pkg *storage.SubscriptionPackage) error {
	if pkg.ID == uuid.Nil {
		pkg.ID = uuid.New()
	}
	now := time.Now()
	pkg.CreatedAt = now
	pkg.UpdatedAt = now

	query := `
		INSERT INTO packages (id, name, description, duration_days, price_cents, currency, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err := p.pool.Exec(ctx, query, pkg.ID, pkg.Name, pkg.Description, pkg.DurationDays,
		pkg.PriceCents, pkg.Currency, pkg.IsActive, now)
	return err
}

func (p *PostgresStorage) CreateSubscription(ctx context.Context, sub *storage.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	query := `
		INSERT INTO subscriptions (id, client_id, package_id, status, order_id, payment_url,
		                           starts_at, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`
	_, err := p.pool.Exec(ctx, query, sub.ID, sub.ClientID, sub.PackageID, sub.Status,
		sub.OrderID, sub.PaymentURL, sub.StartsAt, sub.ExpiresAt, now)
	return err
}

func (p *PostgresStorage) GetSubscription(ctx context.Context, id uuid.UUID) (*storage.Subscription, error) {
	query := `
		SELECT id, client_id, package_id, status, order_id, payment_url, starts_at, expires_at, created_at, updated_at
		FROM subscriptions
		WHERE id = $1
	`
	var sub storage.Subscription
	err := p.pool.QueryRow(ctx, query, id).Scan(&sub.ID, &sub.ClientID, &sub.PackageID, &sub.Status,
		&sub.OrderID, &sub.PaymentURL, &sub.StartsAt, &sub.ExpiresAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (p *PostgresStorage) ListSubscriptions(ctx context.Context, clientID uuid.UUID) ([]storage.Subscription, error) {
	query := `
		SELECT id, client_id, package_id, status, order_id, payment_url, starts_at, expires_at, created_at, updated_at
		FROM subscriptions
		WHERE client_id = $1
		ORDER BY created_at DESC
	`
	rows, err := p.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []storage.Subscription{}
	for rows.Next() {
		var sub storage.Subscription
		err := rows.Scan(&sub.ID, &sub.ClientID, &sub.PackageID, &sub.Status,
			&sub.OrderID, &sub.PaymentURL, &sub.StartsAt, &sub.ExpiresAt, &sub.CreatedAt, &sub.UpdatedAt)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (p *PostgresStorage) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status string, startsAt, expiresAt *time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = $2,
		    starts_at = COALESCE($3, starts_at),
		    expires_at = COALESCE($4, expires_at),
		    updated_at = $5
		WHERE id = $1
	`
	result, err := p.pool.Exec(ctx, query, id, status, startsAt, expiresAt, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

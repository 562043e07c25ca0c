package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/payments"
	"github.com/nutrivibes/api/internal/storage"
)

var (
	ErrPackageNotFound      = errors.New("package not found")
	ErrClientNotFound       = errors.New("client not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrAlreadyActive        = errors.New("subscription already active")
	ErrBadTransition        = errors.New("invalid status transition")
)

type Service struct {
	storage  storage.SubscriptionsStorage
	clients  storage.ClientsStorage
	provider payments.Provider
	logger   *log.Logger
}

func NewService(st storage.SubscriptionsStorage, clients storage.ClientsStorage, provider payments.Provider, logger *log.Logger) *Service {
	return &Service{storage: st, clients: clients, provider: provider, logger: logger}
}

// VerifyAccess checks that the caller may touch this client's
// subscriptions: a client only their own, a dietician only clients on
// their roster.
func (s *Service) VerifyAccess(ctx context.Context, callerID, clientID uuid.UUID, callerIsClient bool) error {
	if callerIsClient {
		if callerID != clientID {
			return ErrClientNotFound
		}
		return nil
	}
	c, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("get client: %w", err)
	}
	if c == nil || c.DieticianID != callerID {
		return ErrClientNotFound
	}
	return nil
}

func (s *Service) ListPackages(ctx context.Context, onlyActive bool) ([]storage.SubscriptionPackage, error) {
	return s.storage.ListPackages(ctx, onlyActive)
}

func (s *Service) CreatePackage(ctx context.Context, name, description string, durationDays int, priceCents int64, currency string) (*storage.SubscriptionPackage, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if durationDays <= 0 {
		return nil, fmt.Errorf("%w: duration_days must be positive", ErrInvalidInput)
	}
	if priceCents < 0 {
		return nil, fmt.Errorf("%w: price_cents must not be negative", ErrInvalidInput)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidInput)
	}
	pkg := &storage.SubscriptionPackage{
		Name:         name,
		Description:  strings.TrimSpace(description),
		DurationDays: durationDays,
		PriceCents:   priceCents,
		Currency:     currency,
		IsActive:     true,
	}
	if err := s.storage.CreatePackage(ctx, pkg); err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}
	return pkg, nil
}

// Subscribe creates a pending subscription and a payment link for it.
// The subscription stays pending until the payment callback activates it.
func (s *Service) Subscribe(ctx context.Context, clientID, packageID uuid.UUID) (*storage.Subscription, error) {
	client, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil || client.IsArchived {
		return nil, ErrClientNotFound
	}

	pkg, err := s.storage.GetPackage(ctx, packageID)
	if err != nil {
		return nil, fmt.Errorf("get package: %w", err)
	}
	if pkg == nil || !pkg.IsActive {
		return nil, ErrPackageNotFound
	}

	existing, err := s.storage.ListSubscriptions(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	now := time.Now().UTC()
	for _, sub := range existing {
		if sub.Status == storage.SubscriptionActive && (sub.ExpiresAt == nil || sub.ExpiresAt.After(now)) {
			return nil, ErrAlreadyActive
		}
	}

	orderID := fmt.Sprintf("nv-%s", uuid.New().String()[:18])
	url, err := s.provider.CreatePaymentLink(ctx, orderID, pkg.PriceCents, pkg.Currency, client.FullName, client.Email)
	if err != nil {
		s.logger.Printf("WARN subscriptions: payment link for order %s failed: %v", orderID, err)
		return nil, fmt.Errorf("create payment link: %w", err)
	}

	sub := &storage.Subscription{
		ClientID:   clientID,
		PackageID:  packageID,
		Status:     storage.SubscriptionPending,
		OrderID:    orderID,
		PaymentURL: &url,
	}
	if err := s.storage.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

func (s *Service) ListSubscriptions(ctx context.Context, clientID uuid.UUID) ([]storage.Subscription, error) {
	return s.storage.ListSubscriptions(ctx, clientID)
}

// Activate transitions a pending subscription to active and opens its
// validity window. Driven by the payment provider callback.
func (s *Service) Activate(ctx context.Context, subscriptionID uuid.UUID) (*storage.Subscription, error) {
	sub, err := s.storage.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	if sub.Status != storage.SubscriptionPending {
		return nil, fmt.Errorf("%w: %s -> active", ErrBadTransition, sub.Status)
	}
	pkg, err := s.storage.GetPackage(ctx, sub.PackageID)
	if err != nil {
		return nil, fmt.Errorf("get package: %w", err)
	}
	if pkg == nil {
		return nil, ErrPackageNotFound
	}

	startsAt := time.Now().UTC()
	expiresAt := startsAt.AddDate(0, 0, pkg.DurationDays)
	if err := s.storage.UpdateSubscriptionStatus(ctx, sub.ID, storage.SubscriptionActive, &startsAt, &expiresAt); err != nil {
		return nil, fmt.Errorf("activate subscription: %w", err)
	}
	sub.Status = storage.SubscriptionActive
	sub.StartsAt = &startsAt
	sub.ExpiresAt = &expiresAt
	s.logger.Printf("INFO subscriptions: %s active for client %s until %s", sub.ID, sub.ClientID, expiresAt.Format("2006-01-02"))
	return sub, nil
}

// Cancel marks a pending or active subscription as cancelled.
func (s *Service) Cancel(ctx context.Context, subscriptionID uuid.UUID) error {
	sub, err := s.storage.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("get subscription: %w", err)
	}
	if sub == nil {
		return ErrSubscriptionNotFound
	}
	if sub.Status != storage.SubscriptionPending && sub.Status != storage.SubscriptionActive {
		return fmt.Errorf("%w: %s -> cancelled", ErrBadTransition, sub.Status)
	}
	return s.storage.UpdateSubscriptionStatus(ctx, sub.ID, storage.SubscriptionCancelled, sub.StartsAt, sub.ExpiresAt)
}

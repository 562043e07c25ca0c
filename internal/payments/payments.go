package payments

import (
	"context"
	"fmt"
	"log"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/nutrivibes/api/internal/config"
)

// Provider creates hosted payment pages for subscription orders. The
// returned URL is handed to the client app, which opens it in a browser.
type Provider interface {
	CreatePaymentLink(ctx context.Context, orderID string, amountCents int64, currency, customerName, customerEmail string) (string, error)
}

// MockProvider returns a deterministic fake URL. Used in local mode and
// in tests so no network call is ever made.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) CreatePaymentLink(_ context.Context, orderID string, _ int64, _, _, _ string) (string, error) {
	return "https://pay.example.com/mock/" + orderID, nil
}

// MidtransProvider creates Snap transactions through the Midtrans API.
type MidtransProvider struct {
	client snap.Client
}

func NewMidtransProvider(serverKey string, production bool) *MidtransProvider {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	var client snap.Client
	client.New(serverKey, env)
	return &MidtransProvider{client: client}
}

func (p *MidtransProvider) CreatePaymentLink(_ context.Context, orderID string, amountCents int64, _, customerName, customerEmail string) (string, error) {
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID: orderID,
			// Midtrans bills in whole rupiah; prices are stored in cents.
			GrossAmt: amountCents / 100,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: customerName,
			Email: customerEmail,
		},
	}
	resp, snapErr := p.client.CreateTransaction(req)
	if snapErr != nil {
		return "", fmt.Errorf("midtrans create transaction: %w", snapErr)
	}
	return resp.RedirectURL, nil
}

// NewProvider selects the payment backend from config. Mock is the
// default; midtrans requires a server key, which config.Load enforces.
func NewProvider(cfg config.PaymentsConfig, logger *log.Logger) Provider {
	if cfg.Mode == "midtrans" {
		logger.Printf("INFO payments: midtrans provider enabled (production=%t)", cfg.MidtransProd)
		return NewMidtransProvider(cfg.MidtransServerKey, cfg.MidtransProd)
	}
	logger.Printf("INFO payments: mock provider enabled")
	return NewMockProvider()
}

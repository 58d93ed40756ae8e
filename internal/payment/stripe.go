package payment

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// IntentRequest describes the charge for one appointment.
type IntentRequest struct {
	AppointmentID string
	BusinessID    string
	CustomerID    string
	Amount        float64
}

type Creator interface {
	CreateIntent(ctx context.Context, req IntentRequest) (string, error)
}

// StripeCreator creates Stripe PaymentIntents. The appointment id doubles as
// the idempotency key so a repeated call never creates a second intent.
type StripeCreator struct {
	api      *client.API
	currency string
}

// NewStripeCreator builds a creator on the given key. backends may be nil
// for the default Stripe endpoints.
func NewStripeCreator(secretKey, currency string, backends *stripe.Backends) *StripeCreator {
	api := &client.API{}
	api.Init(strings.TrimSpace(secretKey), backends)
	return &StripeCreator{
		api:      api,
		currency: strings.ToLower(strings.TrimSpace(currency)),
	}
}

func (s *StripeCreator) CreateIntent(ctx context.Context, req IntentRequest) (string, error) {
	cents := AmountInCents(req.Amount)
	if cents <= 0 {
		return "", errors.New("payment amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(s.currency),
	}
	params.Context = ctx
	params.IdempotencyKey = stripe.String("appointment-" + req.AppointmentID)
	params.AddMetadata("appointment_id", req.AppointmentID)
	params.AddMetadata("business_id", req.BusinessID)
	params.AddMetadata("customer_id", req.CustomerID)

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// AmountInCents converts a decimal amount to the smallest currency unit.
func AmountInCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

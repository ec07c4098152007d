// Package payment wraps the external payment provider.
package payment

import (
	"context"
	"errors"
)

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type Intent struct {
	ID           string
	ClientSecret string
}

type Refund struct {
	ID     string
	Status string
}

// Event is the part of a provider webhook the booking core reacts to.
type Event struct {
	ID       string
	Type     string
	IntentID string
}

// Gateway is the provider surface used by the payment service.
type Gateway interface {
	Name() string
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)
	Refund(ctx context.Context, intentID string, amount int64) (*Refund, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

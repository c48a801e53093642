package consumer_test

import (
	"context"

	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
)

type UserRegisteredEvent struct{ UserID string }

type ChargeCommand struct {
	cbus.CommandMessage
	OrderID string
	Amount  int
}

type SendWelcomeEmail struct{ sent *[]string }

func (h SendWelcomeEmail) Consume(_ context.Context, e UserRegisteredEvent) error {
	if h.sent != nil {
		*h.sent = append(*h.sent, e.UserID)
	}

	return nil
}

type AddToNewsletter struct{}

func (AddToNewsletter) Consume(context.Context, UserRegisteredEvent) error { return nil }

type GrantTrial struct{}

func (GrantTrial) Consume(context.Context, UserRegisteredEvent) error { return nil }

type ChargeCard struct{ charged []string }

func (h *ChargeCard) Consume(_ context.Context, c ChargeCommand) error {
	h.charged = append(h.charged, c.OrderID)
	return nil
}

type AuditCharge struct{}

func (AuditCharge) Consume(context.Context, ChargeCommand) error { return nil }

type ReserveFunds struct{}

func (ReserveFunds) Consume(context.Context, ChargeCommand) error { return nil }

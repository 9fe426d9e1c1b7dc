package adapter

import (
	"context"
	"time"
)

// VerificationEvent is emitted after a successful card verification.
type VerificationEvent struct {
	CardID   string    `json:"card_id"`
	Outcome  string    `json:"outcome"`
	CardType string    `json:"card_type"`
	DeviceID string    `json:"device_id"`
	At       time.Time `json:"at"`
}

// EventPublisher is the port for the outbound event bus. Publish failures
// never change a verification outcome.
type EventPublisher interface {
	PublishVerification(ctx context.Context, ev VerificationEvent) error
	Close() error
}

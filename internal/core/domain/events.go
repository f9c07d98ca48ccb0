package domain

import "time"

// WagerEventType names a wager lifecycle event.
type WagerEventType string

const (
	EventWagerPlaced  WagerEventType = "wager.placed"
	EventWagerSettled WagerEventType = "wager.settled"
)

// WagerEvent is broadcast to feed subscribers and downstream consumers.
type WagerEvent struct {
	Type       WagerEventType `json:"type"`
	Wager      Wager          `json:"wager"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewWagerEvent snapshots w into an event.
func NewWagerEvent(t WagerEventType, w *Wager, at time.Time) WagerEvent {
	return WagerEvent{Type: t, Wager: *w, OccurredAt: at}
}

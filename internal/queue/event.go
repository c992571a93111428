// Package queue defines message payloads exchanged over the message broker.
package queue

// EventSnapshot is a flattened copy of an event as it looked at a point in
// time. Audit consumers get the before/after state without querying the
// primary database.
type EventSnapshot struct {
	ID         uint64 `json:"id"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	StartAt    string `json:"start_at"`
	EndAt      string `json:"end_at"`
	Capacity   uint32 `json:"capacity"`
	PriceCents uint32 `json:"price_cents"`
}

// AuditMessage is published to the event.audit queue whenever the scheduling
// core creates, updates, or deletes an event.
type AuditMessage struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	ActorID    uint64         `json:"actor_id"`
	EventID    uint64         `json:"event_id"`
	Before     *EventSnapshot `json:"before,omitempty"`
	After      *EventSnapshot `json:"after,omitempty"`
	OccurredAt string         `json:"occurred_at"`
}

// BookingCreatedEvent is published when a customer successfully books an
// event. It carries enough context for downstream consumers to log or notify
// without a database round trip.
type BookingCreatedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	UserID      uint64 `json:"user_id"`
	EventID     uint64 `json:"event_id"`
	EventTitle  string `json:"event_title"`
	StartAt     string `json:"start_at"`
	Qty         uint32 `json:"qty"`
	AmountCents uint32 `json:"amount_cents"`
	CreatedAt   string `json:"created_at"`
}

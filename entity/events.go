package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

// TicketActivated is published from within the activation transaction,
// so it is emitted at most once per ticket.
type TicketActivated struct {
	Header      EventHeader `json:"header"`
	TicketID    string      `json:"ticket_id"`
	EventID     string      `json:"event_id"`
	HolderName  string      `json:"holder_name"`
	HolderEmail string      `json:"holder_email"`
}

// PaymentFlagged reports a rejected gateway notification for operator
// review: forged signature, unknown order, payment id or amount mismatch.
type PaymentFlagged struct {
	Header    EventHeader `json:"header"`
	OrderID   string      `json:"order_id"`
	PaymentID string      `json:"payment_id"`
	Reason    string      `json:"reason"`
}

package entity

import "time"

type TicketStatus string

const (
	TicketStatusUnpaid    TicketStatus = "unpaid"
	TicketStatusPaid      TicketStatus = "paid"
	TicketStatusActivated TicketStatus = "activated"
	TicketStatusRefunded  TicketStatus = "refunded"
)

// Payment method codes as recorded on tickets. The gateway reports a
// free-form method string; we persist only a coarse code.
const (
	PaymentMethodUnset = 0
	PaymentMethodVisa  = 1
	PaymentMethodOther = 2
)

type Ticket struct {
	TicketID      string       `json:"ticket_id" db:"ticket_id"`
	EventID       string       `json:"event_id" db:"event_id"`
	Status        TicketStatus `json:"status" db:"status"`
	HolderName    string       `json:"holder_name" db:"holder_name"`
	HolderEmail   string       `json:"holder_email" db:"holder_email"`
	AmountCents   int64        `json:"amount_cents" db:"amount_cents"`
	Currency      string       `json:"currency" db:"currency"`
	PaymentID     *string      `json:"payment_id" db:"payment_id"`
	PaymentMethod int          `json:"payment_method" db:"payment_method"`
	Attended      bool         `json:"attended" db:"attended"`
	ArrivedAt     *time.Time   `json:"arrived_at" db:"arrived_at"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// PaymentDetails carries the gateway-assigned fields recorded on the
// unpaid -> paid transition. PaymentID is set at most once per ticket.
type PaymentDetails struct {
	PaymentID string
	Method    int
}

// AtOrPast reports whether the ticket already reached the given status
// along the unpaid -> paid -> activated path. Refunded is terminal and
// counts as past everything.
func (t Ticket) AtOrPast(status TicketStatus) bool {
	return statusRank(t.Status) >= statusRank(status)
}

func statusRank(s TicketStatus) int {
	switch s {
	case TicketStatusUnpaid:
		return 0
	case TicketStatusPaid:
		return 1
	case TicketStatusActivated:
		return 2
	case TicketStatusRefunded:
		return 3
	default:
		return -1
	}
}

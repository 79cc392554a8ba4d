package entity

import "time"

// ConfirmationJob is the data needed to render and send one ticket
// confirmation. It exists only between the activation transition and the
// delivery attempt; it is never persisted.
type ConfirmationJob struct {
	TicketID       string
	RecipientName  string
	RecipientEmail string
	EventName      string
	EventDate      string
	EventTime      string
	EventLocation  string
	EventImageURL  string
	TicketURL      string
}

type Anomaly struct {
	AnomalyID  string    `json:"anomaly_id" db:"anomaly_id"`
	OrderID    string    `json:"order_id" db:"order_id"`
	PaymentID  string    `json:"payment_id" db:"payment_id"`
	Reason     string    `json:"reason" db:"reason"`
	DetectedAt time.Time `json:"detected_at" db:"detected_at"`
}

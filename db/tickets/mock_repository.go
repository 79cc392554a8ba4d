package tickets

import (
	"context"
	"sync"

	"eventure/entity"
)

// MockRepository is an in-memory store with the same compare-and-set
// semantics as the Postgres repository. Unlike the real one it publishes
// nothing; tests observe transitions through Updates.
type MockRepository struct {
	lock sync.Mutex

	Tickets map[string]entity.Ticket

	// Updates records every successful transition in order.
	Updates []entity.TicketStatus
}

func NewMockRepository() *MockRepository {
	return &MockRepository{Tickets: map[string]entity.Ticket{}}
}

func (r *MockRepository) Add(ctx context.Context, ticket entity.Ticket) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.Tickets[ticket.TicketID]; ok {
		return nil
	}
	ticket.Status = entity.TicketStatusUnpaid
	r.Tickets[ticket.TicketID] = ticket

	return nil
}

func (r *MockRepository) Get(ctx context.Context, ticketID string) (entity.Ticket, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ticket, ok := r.Tickets[ticketID]
	if !ok {
		return entity.Ticket{}, entity.ErrNotFound
	}

	return ticket, nil
}

func (r *MockRepository) UpdateStatus(
	ctx context.Context,
	ticketID string,
	expected entity.TicketStatus,
	next entity.TicketStatus,
	payment *entity.PaymentDetails,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	ticket, ok := r.Tickets[ticketID]
	if !ok {
		return entity.ErrNotFound
	}
	if ticket.Status != expected {
		return entity.ErrConflict
	}
	if payment != nil && ticket.PaymentID != nil {
		return entity.ErrConflict
	}

	ticket.Status = next
	if payment != nil {
		paymentID := payment.PaymentID
		ticket.PaymentID = &paymentID
		ticket.PaymentMethod = payment.Method
	}
	r.Tickets[ticketID] = ticket
	r.Updates = append(r.Updates, next)

	return nil
}

func (r *MockRepository) SetAttendance(ctx context.Context, ticketID string, attended bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	ticket, ok := r.Tickets[ticketID]
	if !ok {
		return entity.ErrNotFound
	}
	ticket.Attended = attended
	r.Tickets[ticketID] = ticket

	return nil
}

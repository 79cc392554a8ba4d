package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"eventure/entity"
	"eventure/payhere"
)

type Outcome string

const (
	// OutcomeAccepted means a state transition was applied.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeIgnored means the ticket was already at or past the implied
	// target state; gateway retries land here and are not errors.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeRejected means the notification was not trusted or could not
	// be applied; no state changed.
	OutcomeRejected Outcome = "rejected"
)

type Result struct {
	Outcome Outcome
	Status  entity.TicketStatus
	Reason  string
}

func accepted(status entity.TicketStatus) Result {
	return Result{Outcome: OutcomeAccepted, Status: status}
}

func ignored(status entity.TicketStatus) Result {
	return Result{Outcome: OutcomeIgnored, Status: status}
}

func rejected(reason string) Result {
	return Result{Outcome: OutcomeRejected, Reason: reason}
}

// TicketsRepository is the store the engine serializes all transitions
// through. UpdateStatus applies the transition only if the current status
// equals expected, returning entity.ErrConflict otherwise.
type TicketsRepository interface {
	Get(ctx context.Context, ticketID string) (entity.Ticket, error)
	UpdateStatus(
		ctx context.Context,
		ticketID string,
		expected entity.TicketStatus,
		next entity.TicketStatus,
		payment *entity.PaymentDetails,
	) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Engine drives the ticket state machine from verified gateway
// notifications and authenticated internal actions.
type Engine struct {
	verifier payhere.Verifier
	repo     TicketsRepository
	eventBus EventPublisher
}

func NewEngine(verifier payhere.Verifier, repo TicketsRepository, eventBus EventPublisher) Engine {
	if repo == nil {
		panic("missing repo")
	}
	if eventBus == nil {
		panic("missing eventBus")
	}

	return Engine{
		verifier: verifier,
		repo:     repo,
		eventBus: eventBus,
	}
}

// storeWriteAttempts bounds local retries of the compare-and-set write.
// The gateway is not trusted to redeliver on error responses, so a
// transient store failure has to be absorbed here, not surfaced.
const storeWriteAttempts = 3

// updateStatus applies one transition, retrying transient store failures.
// Conflict and not-found are semantic outcomes and return immediately.
func (e Engine) updateStatus(
	ctx context.Context,
	ticketID string,
	expected entity.TicketStatus,
	next entity.TicketStatus,
	payment *entity.PaymentDetails,
) error {
	var err error
	for attempt := 0; attempt < storeWriteAttempts; attempt++ {
		err = e.repo.UpdateStatus(ctx, ticketID, expected, next, payment)
		if err == nil || errors.Is(err, entity.ErrConflict) || errors.Is(err, entity.ErrNotFound) {
			return err
		}
		log.FromContext(ctx).
			WithField("ticket_id", ticketID).
			WithError(err).
			Warn("Ticket status write failed, retrying")
	}
	return err
}

// Reconcile applies one gateway notification. It verifies the signature
// first, so an unverified payload never reaches the store, and routes every
// transition through the repository's compare-and-set.
func (e Engine) Reconcile(ctx context.Context, n payhere.Notification) Result {
	logger := log.FromContext(ctx).
		WithField("order_id", n.OrderID).
		WithField("status_code", n.StatusCode)

	if !e.verifier.Verify(n) {
		logger.Warn("Notification signature mismatch")
		e.flag(ctx, n, "signature mismatch")
		return rejected("signature mismatch")
	}

	switch n.StatusCode {
	case payhere.StatusSuccess:
		return e.reconcilePayment(ctx, n)
	case payhere.StatusChargedback:
		return e.reconcileChargeback(ctx, n)
	default:
		// Pending, canceled and failed payments leave the ticket unpaid.
		logger.Info("Non-final payment notification, nothing to apply")
		return ignored(entity.TicketStatusUnpaid)
	}
}

func (e Engine) reconcilePayment(ctx context.Context, n payhere.Notification) Result {
	amountCents, err := entity.ParseAmountCents(n.Amount)
	if err != nil {
		e.flag(ctx, n, "malformed amount")
		return rejected("malformed amount")
	}

	payment := &entity.PaymentDetails{
		PaymentID: n.PaymentID,
		Method:    payhere.PaymentMethodCode(n.Method),
	}

	// Conflicts here are almost always another delivery of the same
	// notification racing us; one re-evaluation settles it.
	for attempt := 0; attempt < 2; attempt++ {
		ticket, err := e.repo.Get(ctx, n.OrderID)
		if errors.Is(err, entity.ErrNotFound) {
			e.flag(ctx, n, "unknown order id")
			return rejected("unknown order id")
		}
		if err != nil {
			return rejected(fmt.Sprintf("store read failed: %s", err))
		}

		if ticket.PaymentID != nil && *ticket.PaymentID != n.PaymentID {
			e.flag(ctx, n, "payment id mismatch")
			return rejected("payment id mismatch")
		}
		if amountCents != ticket.AmountCents {
			e.flag(ctx, n, "amount mismatch")
			return rejected("amount mismatch")
		}
		if n.Currency != ticket.Currency {
			e.flag(ctx, n, "currency mismatch")
			return rejected("currency mismatch")
		}

		if ticket.AtOrPast(entity.TicketStatusPaid) {
			return ignored(ticket.Status)
		}

		err = e.updateStatus(ctx, ticket.TicketID, entity.TicketStatusUnpaid, entity.TicketStatusPaid, payment)
		if errors.Is(err, entity.ErrConflict) {
			continue
		}
		if err != nil {
			return rejected(fmt.Sprintf("store write failed: %s", err))
		}

		return accepted(entity.TicketStatusPaid)
	}

	return rejected("conflicting concurrent update")
}

func (e Engine) reconcileChargeback(ctx context.Context, n payhere.Notification) Result {
	for attempt := 0; attempt < 2; attempt++ {
		ticket, err := e.repo.Get(ctx, n.OrderID)
		if errors.Is(err, entity.ErrNotFound) {
			e.flag(ctx, n, "chargeback for unknown order id")
			return rejected("unknown order id")
		}
		if err != nil {
			return rejected(fmt.Sprintf("store read failed: %s", err))
		}

		if ticket.PaymentID != nil && *ticket.PaymentID != n.PaymentID {
			e.flag(ctx, n, "chargeback payment id mismatch")
			return rejected("payment id mismatch")
		}

		switch ticket.Status {
		case entity.TicketStatusRefunded:
			return ignored(ticket.Status)
		case entity.TicketStatusUnpaid:
			e.flag(ctx, n, "chargeback for unpaid ticket")
			return rejected("ticket not paid")
		}

		err = e.updateStatus(ctx, ticket.TicketID, ticket.Status, entity.TicketStatusRefunded, nil)
		if errors.Is(err, entity.ErrConflict) {
			continue
		}
		if err != nil {
			return rejected(fmt.Sprintf("store write failed: %s", err))
		}

		return accepted(entity.TicketStatusRefunded)
	}

	return rejected("conflicting concurrent update")
}

// Activate issues the credential for a paid ticket. The paid -> activated
// compare-and-set succeeds for exactly one caller; the outbox event it
// publishes is what triggers confirmation delivery.
func (e Engine) Activate(ctx context.Context, ticketID string) Result {
	for attempt := 0; attempt < 2; attempt++ {
		ticket, err := e.repo.Get(ctx, ticketID)
		if errors.Is(err, entity.ErrNotFound) {
			return rejected("unknown ticket id")
		}
		if err != nil {
			return rejected(fmt.Sprintf("store read failed: %s", err))
		}

		switch ticket.Status {
		case entity.TicketStatusActivated:
			return ignored(ticket.Status)
		case entity.TicketStatusUnpaid:
			return rejected("ticket not paid")
		case entity.TicketStatusRefunded:
			return rejected("ticket refunded")
		}

		err = e.updateStatus(ctx, ticketID, entity.TicketStatusPaid, entity.TicketStatusActivated, nil)
		if errors.Is(err, entity.ErrConflict) {
			continue
		}
		if err != nil {
			return rejected(fmt.Sprintf("store write failed: %s", err))
		}

		log.FromContext(ctx).WithField("ticket_id", ticketID).Info("Ticket activated")
		return accepted(entity.TicketStatusActivated)
	}

	return rejected("conflicting concurrent update")
}

// Refund terminally marks a paid or activated ticket refunded. Tickets are
// never deleted and never return to unpaid.
func (e Engine) Refund(ctx context.Context, ticketID string) Result {
	for attempt := 0; attempt < 2; attempt++ {
		ticket, err := e.repo.Get(ctx, ticketID)
		if errors.Is(err, entity.ErrNotFound) {
			return rejected("unknown ticket id")
		}
		if err != nil {
			return rejected(fmt.Sprintf("store read failed: %s", err))
		}

		switch ticket.Status {
		case entity.TicketStatusRefunded:
			return ignored(ticket.Status)
		case entity.TicketStatusUnpaid:
			return rejected("ticket not paid")
		}

		err = e.updateStatus(ctx, ticketID, ticket.Status, entity.TicketStatusRefunded, nil)
		if errors.Is(err, entity.ErrConflict) {
			continue
		}
		if err != nil {
			return rejected(fmt.Sprintf("store write failed: %s", err))
		}

		log.FromContext(ctx).WithField("ticket_id", ticketID).Info("Ticket refunded")
		return accepted(entity.TicketStatusRefunded)
	}

	return rejected("conflicting concurrent update")
}

// flag publishes a PaymentFlagged event for operator review. Flagging is
// best effort; a publish failure must not change the reconciliation outcome.
func (e Engine) flag(ctx context.Context, n payhere.Notification, reason string) {
	err := e.eventBus.Publish(ctx, entity.PaymentFlagged{
		Header:    entity.NewEventHeader(),
		OrderID:   n.OrderID,
		PaymentID: n.PaymentID,
		Reason:    reason,
	})
	if err != nil {
		log.FromContext(ctx).WithError(err).Error("Could not publish PaymentFlagged")
	}
}

package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	dbutils "eventure/db"
	"eventure/entity"
	"eventure/pubsub/bus"
	"eventure/pubsub/outbox"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	if db == nil {
		panic("db must be set")
	}

	return &PostgresRepository{db: db}
}

// Add creates an unpaid ticket. Re-adding the same ticket is a no-op, so
// the booking flow may safely retry.
func (r *PostgresRepository) Add(ctx context.Context, ticket entity.Ticket) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO tickets (ticket_id, event_id, status, holder_name, holder_email, amount_cents, currency)
		VALUES (:ticket_id, :event_id, 'unpaid', :holder_name, :holder_email, :amount_cents, :currency)
		ON CONFLICT DO NOTHING -- ignore if already exists
	`, ticket)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, ticketID string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := r.db.GetContext(ctx, &ticket, `
		SELECT ticket_id, event_id, status, holder_name, holder_email,
		       amount_cents, currency, payment_id, payment_method,
		       attended, arrived_at, created_at
		FROM tickets
		WHERE ticket_id = $1
	`, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Ticket{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not get ticket: %w", err)
	}

	return ticket, nil
}

// UpdateStatus is the compare-and-set every status change goes through:
// the row is updated only if its current status equals expected, otherwise
// entity.ErrConflict (or entity.ErrNotFound) is returned without mutating.
// The paid transition records the payment fields; the activated transition
// publishes entity.TicketActivated through the outbox in the same
// transaction, so concurrent callers can produce at most one such event.
func (r *PostgresRepository) UpdateStatus(
	ctx context.Context,
	ticketID string,
	expected entity.TicketStatus,
	next entity.TicketStatus,
	payment *entity.PaymentDetails,
) error {
	return dbutils.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		var res sql.Result
		var err error

		if payment != nil {
			res, err = tx.ExecContext(ctx, `
				UPDATE tickets
				SET status = $1, payment_id = $2, payment_method = $3
				WHERE ticket_id = $4 AND status = $5 AND payment_id IS NULL
			`, next, payment.PaymentID, payment.Method, ticketID, expected)
		} else {
			res, err = tx.ExecContext(ctx, `
				UPDATE tickets
				SET status = $1
				WHERE ticket_id = $2 AND status = $3
			`, next, ticketID, expected)
		}
		if err != nil {
			return fmt.Errorf("could not update ticket status: %w", err)
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return err
		}

		if rowsAffected == 0 {
			var exists bool
			err = tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM tickets WHERE ticket_id = $1)`, ticketID)
			if err != nil {
				return fmt.Errorf("could not check ticket existence: %w", err)
			}
			if !exists {
				return entity.ErrNotFound
			}
			return entity.ErrConflict
		}

		if next != entity.TicketStatusActivated {
			return nil
		}

		var ticket entity.Ticket
		err = tx.GetContext(ctx, &ticket, `
			SELECT ticket_id, event_id, status, holder_name, holder_email,
			       amount_cents, currency, payment_id, payment_method,
			       attended, arrived_at, created_at
			FROM tickets
			WHERE ticket_id = $1
		`, ticketID)
		if err != nil {
			return fmt.Errorf("could not read activated ticket: %w", err)
		}

		outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
		if err != nil {
			return fmt.Errorf("could not create outbox publisher: %w", err)
		}

		eventBus, err := bus.NewEventBus(outboxPublisher)
		if err != nil {
			return fmt.Errorf("could not create event bus: %w", err)
		}

		err = eventBus.Publish(ctx, entity.TicketActivated{
			Header:      entity.NewEventHeaderWithIdempotencyKey(ticket.TicketID),
			TicketID:    ticket.TicketID,
			EventID:     ticket.EventID,
			HolderName:  ticket.HolderName,
			HolderEmail: ticket.HolderEmail,
		})
		if err != nil {
			return fmt.Errorf("could not publish event: %w", err)
		}

		return nil
	})
}

// SetAttendance records a QR-scan check-in or its reversal.
func (r *PostgresRepository) SetAttendance(ctx context.Context, ticketID string, attended bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET attended = $1,
		    arrived_at = CASE WHEN $1 THEN NOW() ELSE NULL END
		WHERE ticket_id = $2
	`, attended, ticketID)
	if err != nil {
		return fmt.Errorf("could not update attendance: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return entity.ErrNotFound
	}

	return nil
}

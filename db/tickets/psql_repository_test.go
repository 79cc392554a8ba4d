package tickets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbutils "eventure/db"
	"eventure/entity"
)

func newTicket() entity.Ticket {
	return entity.Ticket{
		TicketID:    uuid.NewString(),
		EventID:     uuid.NewString(),
		HolderName:  "Jane Doe",
		HolderEmail: "jane@test.io",
		AmountCents: 150000,
		Currency:    "LKR",
	}
}

func TestTicketsRepository_Add_idempotency(t *testing.T) {
	ctx := context.Background()

	db := dbutils.GetDb(t)
	repo := NewPostgresRepository(db)

	ticket := newTicket()

	for i := 0; i < 2; i++ {
		err := repo.Add(ctx, ticket)
		require.NoError(t, err)

		stored, err := repo.Get(ctx, ticket.TicketID)
		require.NoError(t, err)

		assert.Equal(t, entity.TicketStatusUnpaid, stored.Status)
		assert.Nil(t, stored.PaymentID)
	}
}

func TestTicketsRepository_Get_notFound(t *testing.T) {
	ctx := context.Background()

	db := dbutils.GetDb(t)
	repo := NewPostgresRepository(db)

	_, err := repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestTicketsRepository_UpdateStatus_compareAndSet(t *testing.T) {
	ctx := context.Background()

	db := dbutils.GetDb(t)
	repo := NewPostgresRepository(db)

	ticket := newTicket()
	require.NoError(t, repo.Add(ctx, ticket))

	payment := &entity.PaymentDetails{PaymentID: uuid.NewString(), Method: entity.PaymentMethodVisa}

	err := repo.UpdateStatus(ctx, ticket.TicketID, entity.TicketStatusUnpaid, entity.TicketStatusPaid, payment)
	require.NoError(t, err)

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusPaid, stored.Status)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, payment.PaymentID, *stored.PaymentID)

	// the same expected status no longer matches
	err = repo.UpdateStatus(ctx, ticket.TicketID, entity.TicketStatusUnpaid, entity.TicketStatusPaid, payment)
	assert.ErrorIs(t, err, entity.ErrConflict)

	// status and payment id are unchanged after the conflict
	stored, err = repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusPaid, stored.Status)
	assert.Equal(t, payment.PaymentID, *stored.PaymentID)
}

func TestTicketsRepository_UpdateStatus_notFound(t *testing.T) {
	ctx := context.Background()

	db := dbutils.GetDb(t)
	repo := NewPostgresRepository(db)

	err := repo.UpdateStatus(ctx, uuid.NewString(), entity.TicketStatusUnpaid, entity.TicketStatusPaid, nil)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestTicketsRepository_UpdateStatus_paymentIDIsWriteOnce(t *testing.T) {
	ctx := context.Background()

	db := dbutils.GetDb(t)
	repo := NewPostgresRepository(db)

	ticket := newTicket()
	require.NoError(t, repo.Add(ctx, ticket))

	first := &entity.PaymentDetails{PaymentID: uuid.NewString(), Method: entity.PaymentMethodVisa}
	require.NoError(t, repo.UpdateStatus(ctx, ticket.TicketID, entity.TicketStatusUnpaid, entity.TicketStatusPaid, first))

	// a transition that would overwrite payment_id does not apply
	second := &entity.PaymentDetails{PaymentID: uuid.NewString(), Method: entity.PaymentMethodOther}
	err := repo.UpdateStatus(ctx, ticket.TicketID, entity.TicketStatusPaid, entity.TicketStatusPaid, second)
	assert.ErrorIs(t, err, entity.ErrConflict)

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, first.PaymentID, *stored.PaymentID)
}

func TestTicketsRepository_SetAttendance(t *testing.T) {
	ctx := context.Background()

	db := dbutils.GetDb(t)
	repo := NewPostgresRepository(db)

	ticket := newTicket()
	require.NoError(t, repo.Add(ctx, ticket))

	require.NoError(t, repo.SetAttendance(ctx, ticket.TicketID, true))

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.True(t, stored.Attended)
	assert.NotNil(t, stored.ArrivedAt)

	require.NoError(t, repo.SetAttendance(ctx, ticket.TicketID, false))

	stored, err = repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.False(t, stored.Attended)
	assert.Nil(t, stored.ArrivedAt)

	assert.ErrorIs(t, repo.SetAttendance(ctx, uuid.NewString(), true), entity.ErrNotFound)
}

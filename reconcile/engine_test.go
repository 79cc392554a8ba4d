package reconcile

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventure/db/tickets"
	"eventure/entity"
	"eventure/payhere"
)

const (
	merchantID     = "1211149"
	merchantSecret = "test-merchant-secret"
)

type publisherMock struct {
	lock   sync.Mutex
	events []any
}

func (p *publisherMock) Publish(ctx context.Context, event any) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.events = append(p.events, event)
	return nil
}

func (p *publisherMock) flagged() []entity.PaymentFlagged {
	p.lock.Lock()
	defer p.lock.Unlock()

	var result []entity.PaymentFlagged
	for _, e := range p.events {
		if f, ok := e.(entity.PaymentFlagged); ok {
			result = append(result, f)
		}
	}
	return result
}

func newTestEngine(t *testing.T) (Engine, *tickets.MockRepository, *publisherMock) {
	t.Helper()

	repo := tickets.NewMockRepository()
	publisher := &publisherMock{}
	engine := NewEngine(payhere.NewVerifier(merchantID, merchantSecret), repo, publisher)

	return engine, repo, publisher
}

func addUnpaidTicket(t *testing.T, repo *tickets.MockRepository, amountCents int64) entity.Ticket {
	t.Helper()

	ticket := entity.Ticket{
		TicketID:    uuid.NewString(),
		EventID:     uuid.NewString(),
		HolderName:  "Jane Doe",
		HolderEmail: "jane@test.io",
		AmountCents: amountCents,
		Currency:    "LKR",
	}
	require.NoError(t, repo.Add(context.Background(), ticket))

	return ticket
}

// signedNotification builds a notification carrying a digest computed the
// way the gateway computes it.
func signedNotification(orderID, paymentID, amount, statusCode string) payhere.Notification {
	secretSum := md5.Sum([]byte(merchantSecret))
	secretHash := strings.ToUpper(hex.EncodeToString(secretSum[:]))
	sum := md5.Sum([]byte(merchantID + orderID + amount + "LKR" + statusCode + secretHash))

	return payhere.Notification{
		OrderID:    orderID,
		PaymentID:  paymentID,
		Amount:     amount,
		Currency:   "LKR",
		StatusCode: statusCode,
		Method:     "VISA",
		Signature:  strings.ToUpper(hex.EncodeToString(sum[:])),
	}
}

func TestEngine_Reconcile_successMarksTicketPaid(t *testing.T) {
	ctx := context.Background()
	engine, repo, publisher := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	result := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess))

	assert.Equal(t, OutcomeAccepted, result.Outcome)
	assert.Equal(t, entity.TicketStatusPaid, result.Status)

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusPaid, stored.Status)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, "pay-1", *stored.PaymentID)
	assert.Equal(t, entity.PaymentMethodVisa, stored.PaymentMethod)
	assert.Empty(t, publisher.flagged())
}

func TestEngine_Reconcile_redeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, repo, _ := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	n := signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess)

	first := engine.Reconcile(ctx, n)
	require.Equal(t, OutcomeAccepted, first.Outcome)

	second := engine.Reconcile(ctx, n)
	assert.Equal(t, OutcomeIgnored, second.Outcome)
	assert.Equal(t, entity.TicketStatusPaid, second.Status)

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusPaid, stored.Status)

	// exactly one transition was applied
	assert.Equal(t, []entity.TicketStatus{entity.TicketStatusPaid}, repo.Updates)
}

func TestEngine_Reconcile_tamperedAmountFailsVerification(t *testing.T) {
	ctx := context.Background()
	engine, repo, publisher := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	n := signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess)
	n.Amount = "1.00" // signature no longer matches

	result := engine.Reconcile(ctx, n)

	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, "signature mismatch", result.Reason)

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusUnpaid, stored.Status)

	flagged := publisher.flagged()
	require.Len(t, flagged, 1)
	assert.Equal(t, "signature mismatch", flagged[0].Reason)
}

func TestEngine_Reconcile_amountMismatchIsRejected(t *testing.T) {
	ctx := context.Background()
	engine, repo, publisher := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	// correctly signed, but for a different amount than the ticket's
	result := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "99.00", payhere.StatusSuccess))

	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, "amount mismatch", result.Reason)

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusUnpaid, stored.Status)
	assert.Len(t, publisher.flagged(), 1)
}

func TestEngine_Reconcile_currencyMismatchIsRejected(t *testing.T) {
	ctx := context.Background()
	engine, repo, publisher := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	n := signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess)
	n.Currency = "USD"
	// re-sign over the notification's own currency
	secretSum := md5.Sum([]byte(merchantSecret))
	secretHash := strings.ToUpper(hex.EncodeToString(secretSum[:]))
	sum := md5.Sum([]byte(merchantID + n.OrderID + n.Amount + n.Currency + n.StatusCode + secretHash))
	n.Signature = strings.ToUpper(hex.EncodeToString(sum[:]))

	result := engine.Reconcile(ctx, n)

	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, "currency mismatch", result.Reason)

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusUnpaid, stored.Status)
	assert.Len(t, publisher.flagged(), 1)
}

func TestEngine_Reconcile_unknownOrderIsRejected(t *testing.T) {
	ctx := context.Background()
	engine, _, publisher := newTestEngine(t)

	result := engine.Reconcile(ctx, signedNotification(uuid.NewString(), "pay-1", "1500.00", payhere.StatusSuccess))

	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, "unknown order id", result.Reason)
	assert.Len(t, publisher.flagged(), 1)
}

func TestEngine_Reconcile_paymentIDMismatchIsRejected(t *testing.T) {
	ctx := context.Background()
	engine, repo, publisher := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	first := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess))
	require.Equal(t, OutcomeAccepted, first.Outcome)

	second := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-2", "1500.00", payhere.StatusSuccess))
	assert.Equal(t, OutcomeRejected, second.Outcome)
	assert.Equal(t, "payment id mismatch", second.Reason)

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, "pay-1", *stored.PaymentID, "first payment id must not be overwritten")

	flagged := publisher.flagged()
	require.Len(t, flagged, 1)
	assert.Equal(t, "payment id mismatch", flagged[0].Reason)
}

func TestEngine_Reconcile_failureCodesAreNoOps(t *testing.T) {
	ctx := context.Background()
	engine, repo, publisher := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	for _, statusCode := range []string{payhere.StatusPending, payhere.StatusCanceled, payhere.StatusFailed} {
		result := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", statusCode))
		assert.Equal(t, OutcomeIgnored, result.Outcome, "status code %s", statusCode)
	}

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusUnpaid, stored.Status)
	assert.Nil(t, stored.PaymentID)
	assert.Empty(t, publisher.flagged())
}

func TestEngine_Reconcile_chargeback(t *testing.T) {
	ctx := context.Background()
	engine, repo, _ := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	paid := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess))
	require.Equal(t, OutcomeAccepted, paid.Outcome)

	chargeback := signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusChargedback)

	first := engine.Reconcile(ctx, chargeback)
	assert.Equal(t, OutcomeAccepted, first.Outcome)
	assert.Equal(t, entity.TicketStatusRefunded, first.Status)

	second := engine.Reconcile(ctx, chargeback)
	assert.Equal(t, OutcomeIgnored, second.Outcome)

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusRefunded, stored.Status)
}

func TestEngine_Reconcile_chargebackOnUnpaidTicket(t *testing.T) {
	ctx := context.Background()
	engine, repo, publisher := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	result := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusChargedback))

	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Len(t, publisher.flagged(), 1)

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusUnpaid, stored.Status)
}

func TestEngine_Activate(t *testing.T) {
	ctx := context.Background()
	engine, repo, _ := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	t.Run("unpaid ticket cannot be activated", func(t *testing.T) {
		result := engine.Activate(ctx, ticket.TicketID)
		assert.Equal(t, OutcomeRejected, result.Outcome)
		assert.Equal(t, "ticket not paid", result.Reason)
	})

	paid := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess))
	require.Equal(t, OutcomeAccepted, paid.Outcome)

	t.Run("paid ticket activates once", func(t *testing.T) {
		first := engine.Activate(ctx, ticket.TicketID)
		assert.Equal(t, OutcomeAccepted, first.Outcome)
		assert.Equal(t, entity.TicketStatusActivated, first.Status)

		second := engine.Activate(ctx, ticket.TicketID)
		assert.Equal(t, OutcomeIgnored, second.Outcome)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		result := engine.Activate(ctx, uuid.NewString())
		assert.Equal(t, OutcomeRejected, result.Outcome)
		assert.Equal(t, "unknown ticket id", result.Reason)
	})
}

func TestEngine_Activate_concurrent(t *testing.T) {
	ctx := context.Background()
	engine, repo, _ := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	paid := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess))
	require.Equal(t, OutcomeAccepted, paid.Outcome)

	const callers = 10
	results := make([]Result, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Activate(ctx, ticket.TicketID)
		}(i)
	}
	wg.Wait()

	acceptedCount := lo.CountBy(results, func(r Result) bool { return r.Outcome == OutcomeAccepted })
	assert.Equal(t, 1, acceptedCount, "exactly one concurrent activation must win")

	for _, r := range results {
		assert.NotEqual(t, OutcomeRejected, r.Outcome)
	}

	// the store applied the paid and activated transitions exactly once each
	assert.Equal(t, []entity.TicketStatus{entity.TicketStatusPaid, entity.TicketStatusActivated}, repo.Updates)
}

func TestEngine_Refund(t *testing.T) {
	ctx := context.Background()
	engine, repo, _ := newTestEngine(t)
	ticket := addUnpaidTicket(t, repo, 150000)

	t.Run("unpaid ticket cannot be refunded", func(t *testing.T) {
		result := engine.Refund(ctx, ticket.TicketID)
		assert.Equal(t, OutcomeRejected, result.Outcome)
	})

	paid := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess))
	require.Equal(t, OutcomeAccepted, paid.Outcome)
	activated := engine.Activate(ctx, ticket.TicketID)
	require.Equal(t, OutcomeAccepted, activated.Outcome)

	t.Run("activated ticket refunds", func(t *testing.T) {
		result := engine.Refund(ctx, ticket.TicketID)
		assert.Equal(t, OutcomeAccepted, result.Outcome)
		assert.Equal(t, entity.TicketStatusRefunded, result.Status)

		again := engine.Refund(ctx, ticket.TicketID)
		assert.Equal(t, OutcomeIgnored, again.Outcome)
	})

	t.Run("refunded ticket never reverts", func(t *testing.T) {
		result := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess))
		assert.Equal(t, OutcomeIgnored, result.Outcome)

		stored, err := repo.Get(ctx, ticket.TicketID)
		require.NoError(t, err)
		assert.Equal(t, entity.TicketStatusRefunded, stored.Status)

		activate := engine.Activate(ctx, ticket.TicketID)
		assert.Equal(t, OutcomeRejected, activate.Outcome)
	})
}

// flakyRepository fails a fixed number of UpdateStatus calls before
// delegating, mimicking a store that drops a connection mid-write.
type flakyRepository struct {
	*tickets.MockRepository

	lock     sync.Mutex
	failures int
}

func (r *flakyRepository) UpdateStatus(
	ctx context.Context,
	ticketID string,
	expected entity.TicketStatus,
	next entity.TicketStatus,
	payment *entity.PaymentDetails,
) error {
	r.lock.Lock()
	if r.failures > 0 {
		r.failures--
		r.lock.Unlock()
		return errors.New("write tcp 127.0.0.1:5432: connection reset by peer")
	}
	r.lock.Unlock()

	return r.MockRepository.UpdateStatus(ctx, ticketID, expected, next, payment)
}

func TestEngine_Reconcile_retriesTransientWriteFailure(t *testing.T) {
	ctx := context.Background()
	repo := tickets.NewMockRepository()
	flaky := &flakyRepository{MockRepository: repo, failures: 1}
	publisher := &publisherMock{}
	engine := NewEngine(payhere.NewVerifier(merchantID, merchantSecret), flaky, publisher)
	ticket := addUnpaidTicket(t, repo, 150000)

	result := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess))

	assert.Equal(t, OutcomeAccepted, result.Outcome)

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusPaid, stored.Status)
	assert.Empty(t, publisher.flagged())
}

func TestEngine_Activate_retriesTransientWriteFailure(t *testing.T) {
	ctx := context.Background()
	repo := tickets.NewMockRepository()
	flaky := &flakyRepository{MockRepository: repo}
	publisher := &publisherMock{}
	engine := NewEngine(payhere.NewVerifier(merchantID, merchantSecret), flaky, publisher)
	ticket := addUnpaidTicket(t, repo, 150000)

	paid := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess))
	require.Equal(t, OutcomeAccepted, paid.Outcome)

	flaky.failures = 1
	result := engine.Activate(ctx, ticket.TicketID)
	assert.Equal(t, OutcomeAccepted, result.Outcome)
	assert.Equal(t, entity.TicketStatusActivated, result.Status)
}

func TestEngine_Reconcile_exhaustedWriteRetriesAreRejected(t *testing.T) {
	ctx := context.Background()
	repo := tickets.NewMockRepository()
	flaky := &flakyRepository{MockRepository: repo, failures: storeWriteAttempts}
	publisher := &publisherMock{}
	engine := NewEngine(payhere.NewVerifier(merchantID, merchantSecret), flaky, publisher)
	ticket := addUnpaidTicket(t, repo, 150000)

	result := engine.Reconcile(ctx, signedNotification(ticket.TicketID, "pay-1", "1500.00", payhere.StatusSuccess))

	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Contains(t, result.Reason, "store write failed")

	stored, err := repo.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusUnpaid, stored.Status)
}

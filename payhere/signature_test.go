package payhere

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMerchantID = "1211149"
	testSecret     = "very-secret-merchant-key"
)

// signFor computes the gateway-side digest independently of the verifier,
// the same way PayHere documents it.
func signFor(t *testing.T, merchantID, secret, orderID, amount, currency, statusCode string) string {
	t.Helper()

	secretSum := md5.Sum([]byte(secret))
	secretHash := strings.ToUpper(hex.EncodeToString(secretSum[:]))

	sum := md5.Sum([]byte(merchantID + orderID + amount + currency + statusCode + secretHash))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func validNotification(t *testing.T) Notification {
	t.Helper()

	n := Notification{
		OrderID:    "ticket-1",
		PaymentID:  "320000000000",
		Amount:     "1500.00",
		Currency:   "LKR",
		StatusCode: StatusSuccess,
		Method:     "VISA",
	}
	n.Signature = signFor(t, testMerchantID, testSecret, n.OrderID, n.Amount, n.Currency, n.StatusCode)
	return n
}

func TestVerifier_Verify(t *testing.T) {
	verifier := NewVerifier(testMerchantID, testSecret)

	t.Run("valid signature", func(t *testing.T) {
		assert.True(t, verifier.Verify(validNotification(t)))
	})

	t.Run("lowercase signature is normalized", func(t *testing.T) {
		n := validNotification(t)
		n.Signature = strings.ToLower(n.Signature)
		assert.True(t, verifier.Verify(n))
	})

	t.Run("changing any signed field invalidates the signature", func(t *testing.T) {
		mutations := map[string]func(n *Notification){
			"order_id":    func(n *Notification) { n.OrderID = "ticket-2" },
			"amount":      func(n *Notification) { n.Amount = "1.00" },
			"currency":    func(n *Notification) { n.Currency = "USD" },
			"status_code": func(n *Notification) { n.StatusCode = StatusChargedback },
		}

		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				n := validNotification(t)
				mutate(&n)
				assert.False(t, verifier.Verify(n))
			})
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		n := validNotification(t)
		n.Signature = ""
		assert.False(t, verifier.Verify(n))
	})

	t.Run("wrong merchant secret", func(t *testing.T) {
		otherVerifier := NewVerifier(testMerchantID, "some-other-secret")
		assert.False(t, otherVerifier.Verify(validNotification(t)))
	})

	t.Run("wrong merchant id", func(t *testing.T) {
		otherVerifier := NewVerifier("999", testSecret)
		assert.False(t, otherVerifier.Verify(validNotification(t)))
	})

	t.Run("garbage signature", func(t *testing.T) {
		n := validNotification(t)
		n.Signature = "not-a-digest"
		assert.False(t, verifier.Verify(n))
	})
}

func TestVerifier_Verify_matchesIndependentDigest(t *testing.T) {
	verifier := NewVerifier(testMerchantID, testSecret)

	n := Notification{
		OrderID:    "4d2",
		PaymentID:  "p-1",
		Amount:     "49.50",
		Currency:   "LKR",
		StatusCode: StatusSuccess,
	}
	n.Signature = signFor(t, testMerchantID, testSecret, n.OrderID, n.Amount, n.Currency, n.StatusCode)

	require.True(t, verifier.Verify(n))
}

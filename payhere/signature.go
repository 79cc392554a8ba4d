package payhere

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Verifier authenticates gateway notifications with PayHere's shared-secret
// digest: UPPER(MD5(merchant_id + order_id + amount + currency + status_code
// + UPPER(MD5(merchant_secret)))). It holds the pre-hashed secret so the
// plaintext secret never leaves main.
type Verifier struct {
	merchantID string
	secretHash string
}

func NewVerifier(merchantID, merchantSecret string) Verifier {
	return Verifier{
		merchantID: merchantID,
		secretHash: md5Hex(merchantSecret),
	}
}

// Verify reports whether the notification's signature matches the digest
// computed from our copy of the merchant secret. It is pure: no I/O, never
// panics, and any missing field simply fails to match.
func (v Verifier) Verify(n Notification) bool {
	if n.Signature == "" {
		return false
	}

	expected := v.sign(n.OrderID, n.Amount, n.Currency, n.StatusCode)
	provided := strings.ToUpper(n.Signature)

	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

func (v Verifier) sign(orderID, amount, currency, statusCode string) string {
	return md5Hex(v.merchantID + orderID + amount + currency + statusCode + v.secretHash)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

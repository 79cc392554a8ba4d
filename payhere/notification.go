package payhere

import (
	"fmt"
	"net/url"

	"eventure/entity"
)

// Status codes posted by the gateway in the status_code field.
const (
	StatusSuccess     = "2"
	StatusPending     = "0"
	StatusCanceled    = "-1"
	StatusFailed      = "-2"
	StatusChargedback = "-3"
)

// Notification is one gateway callback, decoded from the URL-encoded form
// body. It lives only for the duration of a single webhook invocation.
type Notification struct {
	OrderID    string
	PaymentID  string
	Amount     string
	Currency   string
	StatusCode string
	Method     string
	Signature  string

	// Merchant passthrough fields (custom_1, custom_2).
	Custom1 string
	Custom2 string
}

// ParseNotification decodes a notification from form values. Fields the
// signature covers are required; a notification we could not even verify
// is rejected before reaching the reconciliation engine.
func ParseNotification(form url.Values) (Notification, error) {
	n := Notification{
		OrderID:    form.Get("order_id"),
		PaymentID:  form.Get("payment_id"),
		Amount:     form.Get("payhere_amount"),
		Currency:   form.Get("payhere_currency"),
		StatusCode: form.Get("status_code"),
		Method:     form.Get("method"),
		Signature:  form.Get("md5sig"),
		Custom1:    form.Get("custom_1"),
		Custom2:    form.Get("custom_2"),
	}

	for _, f := range []struct{ name, value string }{
		{"order_id", n.OrderID},
		{"payment_id", n.PaymentID},
		{"payhere_amount", n.Amount},
		{"payhere_currency", n.Currency},
		{"status_code", n.StatusCode},
		{"md5sig", n.Signature},
	} {
		if f.value == "" {
			return Notification{}, fmt.Errorf("missing %s field", f.name)
		}
	}

	return n, nil
}

// PaymentMethodCode maps the gateway's method string to the code stored on
// the ticket.
func PaymentMethodCode(method string) int {
	if method == "VISA" || method == "Visa" {
		return entity.PaymentMethodVisa
	}
	return entity.PaymentMethodOther
}

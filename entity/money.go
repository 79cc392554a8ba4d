package entity

import (
	"fmt"
	"strings"
)

// ParseAmountCents converts a gateway amount string ("1000.00", "49.5",
// "120") into minor units. Floats are deliberately avoided here.
func ParseAmountCents(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole, frac := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		whole, frac = amount[:i], amount[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount %q: no digits", amount)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q: more than two decimal places", amount)
	}
	// 15 whole digits keeps whole*100+frac inside int64.
	if len(whole) > 15 {
		return 0, fmt.Errorf("invalid amount %q: too long", amount)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	var cents int64
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount %q", amount)
		}
		cents = cents*10 + int64(r-'0')
	}

	return cents, nil
}

// FormatAmountCents renders minor units the way the gateway does ("1000.00").
func FormatAmountCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

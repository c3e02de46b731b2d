package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RupeeSign prefixes every rendered amount.
const RupeeSign = "₹"

// FormatINR renders an amount with two decimals and Indian digit grouping,
// e.g. 1234567.5 -> "₹12,34,567.50".
func FormatINR(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	return sign + RupeeSign + groupIndian(whole) + "." + frac
}

// groupIndian inserts separators after the last three digits and then
// after every two, following the en-IN convention.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var b strings.Builder
	b.Grow(len(digits) + len(head)/2 + 1)
	// An odd-length head leads with a single digit.
	first := len(head) % 2
	if first == 0 {
		first = 2
	}
	b.WriteString(head[:first])
	for i := first; i < len(head); i += 2 {
		b.WriteByte(',')
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}

// Package validate holds the client-side form rules applied before any
// network call. Every rule returns the message shown next to the field, or
// an empty string when the value is acceptable.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/models"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// Field messages.
const (
	MsgFullName        = "Full name is required"
	MsgEmail           = "Valid email is required"
	MsgPhone           = "Valid 10-digit phone number required"
	MsgPassword        = "Password must be at least 8 characters"
	MsgAadhaar         = "Valid 12-digit Aadhaar required"
	MsgPAN             = "Valid PAN format required (e.g., ABCDE1234F)"
	MsgAccountType     = "Account type must be SAVINGS or CURRENT"
	MsgInitialDeposit  = "Initial deposit must be greater than 0"
	MsgAmount          = "Please enter a valid amount greater than 0"
	MsgRecipient       = "Recipient account number is required"
	MsgWithdrawBalance = "Insufficient balance for this withdrawal"
	MsgTransferBalance = "Insufficient balance for this transfer"
)

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe   = regexp.MustCompile(`^[6-9]\d{9}$`)
	aadhaarRe = regexp.MustCompile(`^\d{12}$`)
	panRe     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	// amountRe admits whole rupees with at most two paise digits. Exponents
	// and signs are not amounts a customer types.
	amountRe = regexp.MustCompile(`^\d{1,15}(\.\d{1,2})?$`)
)

// FullName requires a non-blank name.
func FullName(v string) string {
	if strings.TrimSpace(v) == "" {
		return MsgFullName
	}
	return ""
}

// Email checks the loose local@domain.tld shape.
func Email(v string) string {
	if !emailRe.MatchString(v) {
		return MsgEmail
	}
	return ""
}

// Phone accepts Indian mobile numbers: ten digits starting with 6 to 9.
func Phone(v string) string {
	if !phoneRe.MatchString(v) {
		return MsgPhone
	}
	return ""
}

// Password enforces MinPasswordLength characters.
func Password(v string) string {
	if utf8.RuneCountInString(v) < MinPasswordLength {
		return MsgPassword
	}
	return ""
}

// Aadhaar requires exactly twelve digits.
func Aadhaar(v string) string {
	if !aadhaarRe.MatchString(v) {
		return MsgAadhaar
	}
	return ""
}

// PAN requires five capitals, four digits and a capital.
func PAN(v string) string {
	if !panRe.MatchString(v) {
		return MsgPAN
	}
	return ""
}

func AccountType(v string) string {
	if !models.AccountType(v).Valid() {
		return MsgAccountType
	}
	return ""
}

func Recipient(v string) string {
	if strings.TrimSpace(v) == "" {
		return MsgRecipient
	}
	return ""
}

// Amount requires a positive decimal.
func Amount(v string) string {
	if _, ok := ParseAmount(v); !ok {
		return MsgAmount
	}
	return ""
}

// InitialDeposit is Amount with the registration wording.
func InitialDeposit(v string) string {
	if _, ok := ParseAmount(v); !ok {
		return MsgInitialDeposit
	}
	return ""
}

// ParseAmount parses user input as an exact decimal. ok is false unless the
// value is a plain number of at most 15 whole digits and two decimals, and
// strictly positive.
func ParseAmount(v string) (decimal.Decimal, bool) {
	v = strings.TrimSpace(v)
	if !amountRe.MatchString(v) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// Covers reports whether balance is enough for amount.
func Covers(balance, amount decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(amount)
}

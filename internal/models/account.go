// Package models defines the data exchanged with the banking API and the
// session snapshot kept by the client.
package models

import "github.com/shopspring/decimal"

// AccountStatus is the lifecycle state of a bank account.
type AccountStatus string

const (
	// AccountActive accepts all operations.
	AccountActive AccountStatus = "ACTIVE"
	// AccountInactive has not been activated yet.
	AccountInactive AccountStatus = "INACTIVE"
	// AccountClosed was closed by the customer or the bank.
	AccountClosed AccountStatus = "CLOSED"
	// AccountBlocked is frozen by the bank.
	AccountBlocked AccountStatus = "BLOCKED"
)

// AccountType is the product an account was opened as.
type AccountType string

const (
	// Savings is the default retail account.
	Savings AccountType = "SAVINGS"
	// Current is the business account.
	Current AccountType = "CURRENT"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == Savings || t == Current
}

// KYCStatus is the know-your-customer verification state of a profile.
type KYCStatus string

const (
	KYCPending  KYCStatus = "PENDING"
	KYCVerified KYCStatus = "VERIFIED"
	KYCRejected KYCStatus = "REJECTED"
)

// Profile is the snapshot of the logged in customer persisted under the
// "user" key. Right after login only AccountNumber and AccountStatus are set.
type Profile struct {
	AccountNumber string           `json:"accountNumber"`
	AccountStatus AccountStatus    `json:"accountStatus,omitempty"`
	FullName      string           `json:"fullName,omitempty"`
	Email         string           `json:"email,omitempty"`
	Phone         string           `json:"phone,omitempty"`
	AccountType   AccountType      `json:"accountType,omitempty"`
	Balance       *decimal.Decimal `json:"balance,omitempty"`
	Status        AccountStatus    `json:"status,omitempty"`
	KYCStatus     KYCStatus        `json:"kycStatus,omitempty"`
}

// Complete reports whether the snapshot was filled by a profile refresh
// rather than being the stub written at login.
func (p Profile) Complete() bool {
	return p.Balance != nil
}

// Merge overlays the fields returned by GET /api/me on top of p.
func (p Profile) Merge(me MeResponse) Profile {
	balance := me.Balance
	p.FullName = me.FullName
	p.Email = me.Email
	p.Phone = me.Phone
	if me.AccountNumber != "" {
		p.AccountNumber = me.AccountNumber
	}
	p.AccountType = me.AccountType
	p.Balance = &balance
	p.Status = me.Status
	p.KYCStatus = me.KYCStatus
	return p
}

// LoginRequest is the body of POST /api/auth/login. Identifier is an email
// address or a phone number.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token         string        `json:"token"`
	AccountNumber string        `json:"accountNumber"`
	AccountStatus AccountStatus `json:"accountStatus"`
}

// MeResponse is the body of GET /api/me.
type MeResponse struct {
	FullName      string          `json:"fullName"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	AccountNumber string          `json:"accountNumber"`
	AccountType   AccountType     `json:"accountType"`
	Balance       decimal.Decimal `json:"balance"`
	Status        AccountStatus   `json:"status"`
	KYCStatus     KYCStatus       `json:"kycStatus"`
}

// OpenAccountRequest is the body of POST /api/accounts/open.
type OpenAccountRequest struct {
	FullName       string          `json:"fullName"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Password       string          `json:"password"`
	AadhaarNumber  string          `json:"aadhaarNumber"`
	PANCardNumber  string          `json:"panCardNumber"`
	AccountType    AccountType     `json:"accountType"`
	InitialDeposit decimal.Decimal `json:"initialDeposit"`
}

// OpenAccountResponse summarizes a freshly opened account.
type OpenAccountResponse struct {
	AccountNumber string        `json:"accountNumber"`
	AccountType   AccountType   `json:"accountType"`
	Status        AccountStatus `json:"status"`
	CustomerName  string        `json:"customerName"`
	Message       string        `json:"message"`
}

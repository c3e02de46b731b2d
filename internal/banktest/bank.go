// Package banktest runs an in-memory banking API for tests. It speaks the
// same wire contract as the real service: JWT bearer tokens, JSON bodies,
// text bodies for money movements and Spring style pages for history.
package banktest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/logger"
	"github.com/atinyakov/GophBank/internal/models"
)

const (
	// KeyID is the checkout key returned with every payment order.
	KeyID = "rzp_test_banktest"
	// Currency of every payment order.
	Currency = "INR"
	// TokenTTL is the lifetime of issued bearer tokens.
	TokenTTL = 24 * time.Hour
)

var (
	signingKey = []byte("banktest-signing-key")
	keySecret  = []byte("banktest-key-secret")
)

// Account is a customer account held by the fake bank.
type Account struct {
	AccountNumber string
	FullName      string
	Email         string
	Phone         string
	Password      string
	AccountType   models.AccountType
	Status        models.AccountStatus
	KYCStatus     models.KYCStatus
	Balance       decimal.Decimal
}

type order struct {
	accountNumber string
	amount        decimal.Decimal
}

type failure struct {
	status int
	body   string
}

// Bank is the fake API state plus the HTTP server exposing it.
type Bank struct {
	// Server is set by New; NewBank leaves it nil.
	Server *httptest.Server

	log *zap.Logger

	mu       sync.Mutex
	seq      int64
	accounts map[string]*Account
	history  map[string][]models.TransactionRecord
	orders   map[string]order
	hits     map[string]int
	failures map[string]failure
}

// NewBank returns an empty bank without a server.
func NewBank(log *zap.Logger) *Bank {
	return &Bank{
		log:      logger.OrNop(log).Named("banktest"),
		seq:      5000000000,
		accounts: make(map[string]*Account),
		history:  make(map[string][]models.TransactionRecord),
		orders:   make(map[string]order),
		hits:     make(map[string]int),
		failures: make(map[string]failure),
	}
}

// New starts a bank behind an httptest server that is closed with the test.
func New(tb testing.TB) *Bank {
	tb.Helper()
	b := NewBank(nil)
	b.Server = httptest.NewServer(b.Router())
	tb.Cleanup(b.Server.Close)
	return b
}

// URL returns the base URL of the running server.
func (b *Bank) URL() string {
	return b.Server.URL
}

// API returns a client talking to the running server.
func (b *Bank) API(log *zap.Logger) *api.Client {
	return api.New(b.Server.URL, b.Server.Client(), log)
}

// AddAccount stores a copy of a. Empty fields get defaults: a fresh account
// number, SAVINGS, ACTIVE and PENDING KYC.
func (b *Bank) AddAccount(a Account) Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.addLocked(a)
}

func (b *Bank) addLocked(a Account) *Account {
	if a.AccountNumber == "" {
		b.seq++
		a.AccountNumber = fmt.Sprintf("%010d", b.seq)
	}
	if a.AccountType == "" {
		a.AccountType = models.Savings
	}
	if a.Status == "" {
		a.Status = models.AccountActive
	}
	if a.KYCStatus == "" {
		a.KYCStatus = models.KYCPending
	}
	stored := a
	b.accounts[a.AccountNumber] = &stored
	return &stored
}

// Account returns a copy of the account with the given number.
func (b *Bank) Account(number string) (Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[number]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// History returns the ledger of an account, oldest first.
func (b *Bank) History(number string) []models.TransactionRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.TransactionRecord(nil), b.history[number]...)
}

// Hits returns how many requests reached path, including injected failures.
func (b *Bank) Hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

// FailNext makes the next request to path answer with status and body.
// Bodies starting with '{' are sent as JSON, anything else as text.
func (b *Bank) FailNext(path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = failure{status: status, body: body}
}

// IssueToken signs an HS256 token for email that expires after ttl.
// A negative ttl yields an already expired token.
func (b *Bank) IssueToken(email string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(fmt.Sprintf("banktest: sign token: %v", err))
	}
	return tok
}

// Sign computes the checkout signature the bank accepts for a payment,
// HMAC-SHA256 of "orderID|paymentID" in hex.
func Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, keySecret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// findLocked looks an account up by email or phone.
func (b *Bank) findLocked(identifier string) *Account {
	for _, a := range b.accounts {
		if a.Email == identifier || a.Phone == identifier {
			return a
		}
	}
	return nil
}

// recordLocked appends a ledger entry to the account's history.
func (b *Bank) recordLocked(number string, typ models.TransactionType, amount, before, after decimal.Decimal) {
	b.history[number] = append(b.history[number], models.TransactionRecord{
		TransactionID: "TXN" + uuid.NewString(),
		Type:          typ,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Status:        models.TransactionSuccess,
		CreatedAt:     models.Timestamp{Time: time.Now()},
	})
}

// statusRecorder is implemented by chi's wrapped response writer.
type statusRecorder interface {
	http.ResponseWriter
	Status() int
}

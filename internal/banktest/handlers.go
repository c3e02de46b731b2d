package banktest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// currentLocked returns the account of the authenticated caller. The
// caller must hold b.mu.
func (b *Bank) currentLocked(r *http.Request) *Account {
	email := UserFromContext(r.Context())
	if email == "" {
		return nil
	}
	for _, a := range b.accounts {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func (b *Bank) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	var found Account
	acc := b.findLocked(req.Identifier)
	if acc != nil {
		found = *acc
	}
	b.mu.Unlock()

	if acc == nil || found.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token:         b.IssueToken(found.Email, TokenTTL),
		AccountNumber: found.AccountNumber,
		AccountStatus: found.Status,
	})
}

func (b *Bank) openAccount(w http.ResponseWriter, r *http.Request) {
	var req models.OpenAccountRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || !req.AccountType.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid account details"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.findLocked(req.Email) != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already registered"})
		return
	}
	if b.findLocked(req.Phone) != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Phone number already registered"})
		return
	}

	acc := b.addLocked(Account{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		Password:    req.Password,
		AccountType: req.AccountType,
		Balance:     req.InitialDeposit,
	})
	if req.InitialDeposit.IsPositive() {
		b.recordLocked(acc.AccountNumber, models.Deposit, req.InitialDeposit, decimal.Zero, req.InitialDeposit)
	}

	writeJSON(w, http.StatusCreated, models.OpenAccountResponse{
		AccountNumber: acc.AccountNumber,
		AccountType:   acc.AccountType,
		Status:        acc.Status,
		CustomerName:  acc.FullName,
		Message:       "Account opened successfully",
	})
}

func (b *Bank) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	acc := b.currentLocked(r)
	var resp models.MeResponse
	if acc != nil {
		resp = models.MeResponse{
			FullName:      acc.FullName,
			Email:         acc.Email,
			Phone:         acc.Phone,
			AccountNumber: acc.AccountNumber,
			AccountType:   acc.AccountType,
			Balance:       acc.Balance,
			Status:        acc.Status,
			KYCStatus:     acc.KYCStatus,
		}
	}
	b.mu.Unlock()

	if acc == nil {
		writeError(w, http.StatusNotFound, "Account not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Bank) deposit(w http.ResponseWriter, r *http.Request) {
	var req models.AmountRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		writeText(w, http.StatusBadRequest, "Amount must be greater than zero")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.currentLocked(r)
	if acc == nil {
		writeText(w, http.StatusNotFound, "Account not found")
		return
	}
	before := acc.Balance
	acc.Balance = before.Add(req.Amount)
	b.recordLocked(acc.AccountNumber, models.Deposit, req.Amount, before, acc.Balance)
	writeText(w, http.StatusOK, "Deposit successful")
}

func (b *Bank) withdraw(w http.ResponseWriter, r *http.Request) {
	var req models.AmountRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		writeText(w, http.StatusBadRequest, "Amount must be greater than zero")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.currentLocked(r)
	if acc == nil {
		writeText(w, http.StatusNotFound, "Account not found")
		return
	}
	if acc.Balance.LessThan(req.Amount) {
		writeText(w, http.StatusBadRequest, "Insufficient balance")
		return
	}
	before := acc.Balance
	acc.Balance = before.Sub(req.Amount)
	b.recordLocked(acc.AccountNumber, models.Withdraw, req.Amount, before, acc.Balance)
	writeText(w, http.StatusOK, "Withdrawal successful")
}

func (b *Bank) transfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Amount must be greater than zero")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	from := b.currentLocked(r)
	to := b.accounts[req.ReceiverAccountNumber]
	switch {
	case from == nil:
		writeError(w, http.StatusNotFound, "Account not found")
		return
	case to == nil:
		writeError(w, http.StatusNotFound, "Receiver account not found")
		return
	case from == to:
		writeError(w, http.StatusBadRequest, "Cannot transfer to the same account")
		return
	case from.Balance.LessThan(req.Amount):
		writeError(w, http.StatusBadRequest, "Insufficient balance")
		return
	}

	before := from.Balance
	from.Balance = before.Sub(req.Amount)
	to.Balance = to.Balance.Add(req.Amount)
	b.recordLocked(from.AccountNumber, models.Transfer, req.Amount, before, from.Balance)
	writeText(w, http.StatusOK, "Transfer successful")
}

func (b *Bank) transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}
	newestFirst := !strings.HasSuffix(q.Get("sort"), ",asc")

	b.mu.Lock()
	acc := b.currentLocked(r)
	var all []models.TransactionRecord
	if acc != nil {
		all = append(all, b.history[acc.AccountNumber]...)
	}
	b.mu.Unlock()

	if acc == nil {
		writeError(w, http.StatusNotFound, "Account not found")
		return
	}
	if newestFirst {
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
	}

	total := len(all)
	pages := (total + size - 1) / size
	start := min(page*size, total)
	end := min(start+size, total)

	writeJSON(w, http.StatusOK, models.Page[models.TransactionRecord]{
		Content:       append([]models.TransactionRecord{}, all[start:end]...),
		TotalElements: int64(total),
		TotalPages:    pages,
		Number:        page,
		Size:          size,
		First:         page == 0,
		Last:          page >= pages-1,
	})
}

func (b *Bank) createOrder(w http.ResponseWriter, r *http.Request) {
	var req models.AmountRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "Amount must be greater than zero")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.currentLocked(r)
	if acc == nil {
		writeError(w, http.StatusNotFound, "Account not found")
		return
	}
	id := "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	b.orders[id] = order{accountNumber: acc.AccountNumber, amount: req.Amount}

	writeJSON(w, http.StatusOK, models.PaymentOrder{
		OrderID:  id,
		Amount:   req.Amount,
		Currency: Currency,
		Key:      KeyID,
	})
}

func (b *Bank) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentVerification
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.currentLocked(r)
	o, ok := b.orders[req.OrderID]
	if acc == nil || !ok || o.accountNumber != acc.AccountNumber {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	if req.PaymentID == "" || req.Signature != Sign(req.OrderID, req.PaymentID) {
		writeError(w, http.StatusBadRequest, "Payment verification failed")
		return
	}

	delete(b.orders, req.OrderID)
	before := acc.Balance
	acc.Balance = before.Add(o.amount)
	b.recordLocked(acc.AccountNumber, models.Deposit, o.amount, before, acc.Balance)
	writeText(w, http.StatusOK, "Payment verified and deposit successful")
}

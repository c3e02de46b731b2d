// Package session owns the client's authentication state: the bearer token,
// the cached profile snapshot and their durable copy in a storage.Store.
//
// Token presence is the only authority for being authenticated. The profile
// is a cache refreshed from the server and never trusted for decisions
// beyond advisory client-side checks.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/client/storage"
	"github.com/atinyakov/GophBank/internal/logger"
	"github.com/atinyakov/GophBank/internal/models"
)

// User facing failure messages.
const (
	MsgLoginFailed        = "Login failed"
	MsgRegistrationFailed = "Registration failed"
)

// API is the subset of the banking API used by the Manager.
type API interface {
	Login(ctx context.Context, identifier, password string) (*models.LoginResponse, error)
	Me(ctx context.Context, token string) (*models.MeResponse, error)
	OpenAccount(ctx context.Context, req models.OpenAccountRequest) (*models.OpenAccountResponse, error)
}

// Result is the outcome of Login.
type Result struct {
	Success bool
	Error   string
}

// RegisterResult is the outcome of Register. Account is set on success.
type RegisterResult struct {
	Success bool
	Error   string
	Account *models.OpenAccountResponse
}

// Manager is the session service shared by the shell and the flows.
// It is safe for concurrent use; network calls are made without holding
// the internal lock.
type Manager struct {
	api   API
	store storage.Store
	log   *zap.Logger

	mu      sync.Mutex
	token   string
	profile *models.Profile
}

// New restores the session persisted in store. A stored token makes the
// session authenticated; an unreadable profile snapshot is logged and
// dropped while the token is kept.
func New(ctx context.Context, client API, store storage.Store, log *zap.Logger) (*Manager, error) {
	m := &Manager{
		api:   client,
		store: store,
		log:   logger.OrNop(log).Named("session"),
	}

	token, ok, err := store.Get(ctx, storage.KeyToken)
	if err != nil {
		return nil, fmt.Errorf("restore session token: %w", err)
	}
	if !ok || token == "" {
		return m, nil
	}
	m.token = token

	raw, ok, err := store.Get(ctx, storage.KeyUser)
	if err != nil {
		return nil, fmt.Errorf("restore session profile: %w", err)
	}
	if ok {
		var p models.Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			m.log.Warn("stored profile is unreadable, ignoring it", zap.Error(err))
		} else {
			m.profile = &p
		}
	}

	if claims, err := ParseClaims(token); err == nil && claims.Expired() {
		m.log.Info("restored token has expired; the server will reject it",
			zap.String("subject", claims.Subject),
			zap.Time("expires_at", claims.ExpiresAt),
		)
	}
	return m, nil
}

// Login exchanges credentials for a token. On success the token and a
// profile stub are persisted, the session becomes authenticated and the
// full profile is fetched. Any failure yields MsgLoginFailed and leaves the
// store untouched.
func (m *Manager) Login(ctx context.Context, identifier, password string) Result {
	resp, err := m.api.Login(ctx, identifier, password)
	if err != nil {
		m.log.Info("login rejected", zap.Int("status", api.StatusOf(err)), zap.Error(err))
		return Result{Error: MsgLoginFailed}
	}
	if resp.Token == "" {
		m.log.Warn("login response carried no token")
		return Result{Error: MsgLoginFailed}
	}

	stub := models.Profile{
		AccountNumber: resp.AccountNumber,
		AccountStatus: resp.AccountStatus,
	}

	m.mu.Lock()
	err = m.persistLocked(ctx, resp.Token, &stub)
	if err == nil {
		m.token = resp.Token
		m.profile = &stub
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Error("persist session", zap.Error(err))
		return Result{Error: MsgLoginFailed}
	}

	m.FetchProfile(ctx, resp.Token)
	return Result{Success: true}
}

// FetchProfile refreshes the cached profile using token, or the session's
// own token when token is empty. It never fails: errors are logged and the
// previous snapshot stays. A response for a token that is no longer the
// session's (after logout or a new login) is discarded.
func (m *Manager) FetchProfile(ctx context.Context, token string) {
	if token == "" {
		token = m.Token()
	}
	if token == "" {
		return
	}

	me, err := m.api.Me(ctx, token)
	if err != nil {
		m.log.Warn("profile refresh failed", zap.Int("status", api.StatusOf(err)), zap.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != token {
		m.log.Debug("discarding profile for a stale token")
		return
	}

	var base models.Profile
	if m.profile != nil {
		base = *m.profile
	}
	merged := base.Merge(*me)
	if err := m.persistLocked(ctx, m.token, &merged); err != nil {
		m.log.Warn("persist refreshed profile", zap.Error(err))
	}
	m.profile = &merged
}

// Register opens a new account. No token is needed and the session is not
// changed: the customer logs in afterwards.
func (m *Manager) Register(ctx context.Context, req models.OpenAccountRequest) RegisterResult {
	resp, err := m.api.OpenAccount(ctx, req)
	if err != nil {
		m.log.Info("registration rejected", zap.Int("status", api.StatusOf(err)), zap.Error(err))
		return RegisterResult{Error: api.MessageOf(err, MsgRegistrationFailed)}
	}
	return RegisterResult{Success: true, Account: resp}
}

// Logout forgets the token and the profile, in memory and in the store.
// When the store cannot delete the keys the stored token is overwritten
// with "", which New restores as anonymous. An error means the stored
// token may still be live.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = ""
	m.profile = nil
	delErr := m.store.Delete(ctx, storage.KeyToken, storage.KeyUser)
	if delErr == nil {
		return nil
	}
	if err := m.store.Set(ctx, storage.KeyToken, ""); err != nil {
		return fmt.Errorf("clear stored session: %w", errors.Join(delErr, err))
	}
	m.log.Warn("stored session blanked instead of deleted", zap.Error(delErr))
	return nil
}

// Token returns the bearer token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.Token() != ""
}

// Profile returns a copy of the cached snapshot. ok is false when none is
// held.
func (m *Manager) Profile() (p models.Profile, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return models.Profile{}, false
	}
	p = *m.profile
	if p.Balance != nil {
		b := *p.Balance
		p.Balance = &b
	}
	return p, true
}

// Balance returns the cached balance. ok is false until a profile refresh
// has succeeded.
func (m *Manager) Balance() (decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil || m.profile.Balance == nil {
		return decimal.Zero, false
	}
	return *m.profile.Balance, true
}

// Claims decodes the held token without verifying it.
func (m *Manager) Claims() (Claims, error) {
	token := m.Token()
	if token == "" {
		return Claims{}, api.ErrNoToken
	}
	return ParseClaims(token)
}

// persistLocked writes both keys. On a failed profile write the token is
// removed again so the store never holds a token without its snapshot.
func (m *Manager) persistLocked(ctx context.Context, token string, p *models.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := m.store.Set(ctx, storage.KeyToken, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if err := m.store.Set(ctx, storage.KeyUser, string(raw)); err != nil {
		if delErr := m.store.Delete(ctx, storage.KeyToken); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}

// Package history pages through the server-side transaction ledger and
// filters the loaded page for display.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/atinyakov/GophBank/internal/client/api"
	"github.com/atinyakov/GophBank/internal/models"
)

// ErrNoPage is returned by Next and Prev at either end of the listing.
var ErrNoPage = errors.New("no such page")

// Filter narrows a loaded page by direction of money.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterCredit Filter = "credit"
	FilterDebit  Filter = "debit"
)

// ParseFilter accepts "all", "credit" and "debit"; "" means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterCredit, FilterDebit:
		return f, nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q", s)
}

// Match reports whether r passes the filter. Deposits are credits;
// withdrawals and transfers are debits.
func (f Filter) Match(r models.TransactionRecord) bool {
	switch f {
	case FilterCredit:
		return r.Type.Credit()
	case FilterDebit:
		return !r.Type.Credit()
	}
	return true
}

// Lister fetches one page of history.
type Lister interface {
	History(ctx context.Context, token string, p api.PageRequest) (*models.Page[models.TransactionRecord], error)
}

// TokenSource supplies the bearer token at call time.
type TokenSource interface {
	Token() string
}

// Pager walks the history newest first.
type Pager struct {
	lister Lister
	tokens TokenSource
	size   int

	mu     sync.Mutex
	page   *models.Page[models.TransactionRecord]
	filter Filter
	search string
}

// NewPager returns a pager with size entries per page; size <= 0 uses
// api.DefaultPageSize.
func NewPager(l Lister, tokens TokenSource, size int) *Pager {
	if size <= 0 {
		size = api.DefaultPageSize
	}
	return &Pager{lister: l, tokens: tokens, size: size, filter: FilterAll}
}

// Load fetches the 0-based page n. Without a token nothing is sent.
func (p *Pager) Load(ctx context.Context, n int) error {
	token := p.tokens.Token()
	if token == "" {
		return api.ErrNoToken
	}
	page, err := p.lister.History(ctx, token, api.PageRequest{Page: n, Size: p.size, Sort: api.DefaultSort})
	if err != nil {
		return fmt.Errorf("load history page %d: %w", n, err)
	}

	p.mu.Lock()
	p.page = page
	p.mu.Unlock()
	return nil
}

// Next loads the following page.
func (p *Pager) Next(ctx context.Context) error {
	p.mu.Lock()
	if p.page == nil || p.page.Last {
		p.mu.Unlock()
		return ErrNoPage
	}
	n := p.page.Number + 1
	p.mu.Unlock()
	return p.Load(ctx, n)
}

// Prev loads the preceding page.
func (p *Pager) Prev(ctx context.Context) error {
	p.mu.Lock()
	if p.page == nil || p.page.First {
		p.mu.Unlock()
		return ErrNoPage
	}
	n := p.page.Number - 1
	p.mu.Unlock()
	return p.Load(ctx, n)
}

func (p *Pager) HasNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page != nil && !p.page.Last
}

func (p *Pager) HasPrev() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page != nil && !p.page.First
}

// SetFilter changes the filter applied by Entries.
func (p *Pager) SetFilter(f Filter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = f
}

// SetSearch keeps only entries whose transaction id contains q, ignoring
// case. An empty q disables the search.
func (p *Pager) SetSearch(q string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.search = strings.ToLower(strings.TrimSpace(q))
}

// Entries returns the loaded entries that pass the filter and search.
func (p *Pager) Entries() []models.TransactionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.page == nil {
		return nil
	}
	var out []models.TransactionRecord
	for _, r := range p.page.Content {
		if !p.filter.Match(r) {
			continue
		}
		if p.search != "" && !strings.Contains(strings.ToLower(r.TransactionID), p.search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Position describes the loaded page for display.
type Position struct {
	// Page is 1-based.
	Page  int
	Pages int
	// Shown is the number of entries passing the filter out of Loaded.
	Shown  int
	Loaded int
	Total  int64
}

// Position returns where the pager stands. ok is false before the first
// successful Load.
func (p *Pager) Position() (pos Position, ok bool) {
	shown := len(p.Entries())

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.page == nil {
		return Position{}, false
	}
	return Position{
		Page:   p.page.Number + 1,
		Pages:  p.page.TotalPages,
		Shown:  shown,
		Loaded: len(p.page.Content),
		Total:  p.page.TotalElements,
	}, true
}

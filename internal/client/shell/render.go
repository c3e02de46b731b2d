package shell

import (
	"github.com/atinyakov/GophBank/internal/models"
)

const historyTimeLayout = "02 Jan 2006 15:04"

func (s *Shell) showDashboard() {
	p, ok := s.session.Profile()
	if !ok {
		s.p.Println("Not logged in.")
		return
	}

	s.p.Println("Dashboard")
	if p.FullName != "" {
		s.p.Printf("  Name      %s\n", p.FullName)
	}
	if p.Email != "" || p.Phone != "" {
		s.p.Printf("  Contact   %s %s\n", p.Email, p.Phone)
	}

	status := p.Status
	if status == "" {
		status = p.AccountStatus
	}
	s.p.Printf("  Account   %s", p.AccountNumber)
	switch {
	case p.AccountType != "" && status != "":
		s.p.Printf(" (%s, %s)", p.AccountType, status)
	case status != "":
		s.p.Printf(" (%s)", status)
	}
	s.p.Println()

	if p.KYCStatus != "" {
		s.p.Printf("  KYC       %s\n", p.KYCStatus)
	}
	if p.Balance != nil {
		s.p.Printf("  Balance   %s\n", models.FormatINR(*p.Balance))
	} else {
		s.p.Println("  Balance   unavailable, type 'dashboard' to refresh")
	}
}

func (s *Shell) showHistory() {
	pos, ok := s.pager.Position()
	if !ok {
		return
	}
	if pos.Total == 0 {
		s.p.Println("No transactions yet.")
		return
	}

	for _, r := range s.pager.Entries() {
		sign := "-"
		if r.Type.Credit() {
			sign = "+"
		}
		s.p.Printf("  %s  %-20s %-8s %s%-14s balance %-14s %s\n",
			when(r.CreatedAt), r.TransactionID, r.Type, sign, models.FormatINR(r.Amount),
			models.FormatINR(r.BalanceAfter), r.Status)
	}
	if pos.Shown == 0 {
		s.p.Println("  No transactions on this page match.")
	}

	s.p.Printf("Page %d of %d, showing %d of %d loaded (%d total)\n", pos.Page, pos.Pages, pos.Shown, pos.Loaded, pos.Total)
	switch {
	case s.pager.HasPrev() && s.pager.HasNext():
		s.p.Println("Type 'history prev' or 'history next' to page.")
	case s.pager.HasNext():
		s.p.Println("Type 'history next' for older transactions.")
	case s.pager.HasPrev():
		s.p.Println("Type 'history prev' for newer transactions.")
	}
}

func when(t models.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(historyTimeLayout)
}

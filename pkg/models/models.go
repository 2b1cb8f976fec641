package models

import (
	"fmt"
	"time"
)

// Milliunits is the YNAB money representation: 1/1000 of a currency unit.
// All aggregation happens on this integer type; conversion to a display
// string is the last step.
type Milliunits int64

// String formats the amount as a currency string, e.g. "$-12.34".
func (m Milliunits) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	units := m / 1000
	cents := (m % 1000) / 10
	return fmt.Sprintf("$%s%d.%02d", sign, units, cents)
}

// ClearedStatus mirrors the YNAB cleared field on a transaction.
type ClearedStatus string

const (
	Cleared    ClearedStatus = "cleared"
	Uncleared  ClearedStatus = "uncleared"
	Reconciled ClearedStatus = "reconciled"
)

// Uncategorized is the bucket for transactions without a category. It is
// the same label YNAB itself reports for them.
const Uncategorized = "Uncategorized"

// Account is a budget account as reported by YNAB.
type Account struct {
	ID               string
	Name             string
	Type             string
	OnBudget         bool
	Closed           bool
	Balance          Milliunits
	ClearedBalance   Milliunits
	UnclearedBalance Milliunits
}

// Transaction is a single budget transaction. Category is empty when YNAB
// reports none; aggregations map that to Uncategorized.
type Transaction struct {
	ID          string
	Date        time.Time
	Amount      Milliunits
	Payee       string
	Category    string
	Memo        string
	Cleared     ClearedStatus
	AccountID   string
	AccountName string
}

// CategoryName returns the category, substituting the Uncategorized bucket
// when the transaction has none.
func (t Transaction) CategoryName() string {
	if t.Category == "" {
		return Uncategorized
	}
	return t.Category
}

// Snapshot is the complete budget state fetched for one build run. It is
// assembled once and never mutated afterwards; every render pass works
// from the same data.
type Snapshot struct {
	BudgetID     string
	AsOf         time.Time
	Accounts     []Account
	Transactions []Transaction
}

// Empty reports whether the snapshot has no accounts at all.
func (s *Snapshot) Empty() bool {
	return len(s.Accounts) == 0
}

package models

import (
	"fmt"
	"sort"
)

// Month is a reporting period.
type Month struct {
	Year  int
	Month int // 1-12
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// CategoryTotal is the spend in one category during one month.
type CategoryTotal struct {
	Month    Month
	Category string
	Total    Milliunits
}

// PayeeSummary aggregates visits and spend for a single payee.
type PayeeSummary struct {
	Payee  string
	Visits int
	Spent  Milliunits // positive = money spent
}

// Inconsistency records an account whose reported cleared balance does not
// match the sum of its cleared transactions.
type Inconsistency struct {
	Account  string
	Reported Milliunits
	Computed Milliunits
}

func (i Inconsistency) String() string {
	return fmt.Sprintf("account %q: reported cleared balance %s, transactions sum to %s",
		i.Account, i.Reported, i.Computed)
}

// Months returns the distinct reporting periods covered by the snapshot,
// ascending.
func (s *Snapshot) Months() []Month {
	seen := map[Month]bool{}
	for _, t := range s.Transactions {
		seen[Month{Year: t.Date.Year(), Month: int(t.Date.Month())}] = true
	}
	months := make([]Month, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool {
		if months[i].Year != months[j].Year {
			return months[i].Year < months[j].Year
		}
		return months[i].Month < months[j].Month
	})
	return months
}

// MonthlyCategoryTotals sums transaction amounts by (month, category).
// Output is sorted by month then category so repeated calls over the same
// snapshot are byte-for-byte reproducible downstream.
func (s *Snapshot) MonthlyCategoryTotals() []CategoryTotal {
	type key struct {
		month    Month
		category string
	}
	totals := map[key]Milliunits{}
	for _, t := range s.Transactions {
		k := key{
			month:    Month{Year: t.Date.Year(), Month: int(t.Date.Month())},
			category: t.CategoryName(),
		}
		totals[k] += t.Amount
	}
	out := make([]CategoryTotal, 0, len(totals))
	for k, v := range totals {
		out = append(out, CategoryTotal{Month: k.month, Category: k.category, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			if out[i].Month.Year != out[j].Month.Year {
				return out[i].Month.Year < out[j].Month.Year
			}
			return out[i].Month.Month < out[j].Month.Month
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// CategoryTotalsFor returns the category totals for a single month,
// sorted by category.
func (s *Snapshot) CategoryTotalsFor(m Month) []CategoryTotal {
	var out []CategoryTotal
	for _, ct := range s.MonthlyCategoryTotals() {
		if ct.Month == m {
			out = append(out, ct)
		}
	}
	return out
}

// TopPayees ranks payees within the given categories by visit count, then
// by spend, then by name. Spend is negated so outflows rank positive. An
// empty category list means all categories.
func (s *Snapshot) TopPayees(categories []string, n int) []PayeeSummary {
	wanted := map[string]bool{}
	for _, c := range categories {
		wanted[c] = true
	}
	byPayee := map[string]*PayeeSummary{}
	for _, t := range s.Transactions {
		if len(wanted) > 0 && !wanted[t.CategoryName()] {
			continue
		}
		if t.Payee == "" {
			continue
		}
		ps, ok := byPayee[t.Payee]
		if !ok {
			ps = &PayeeSummary{Payee: t.Payee}
			byPayee[t.Payee] = ps
		}
		ps.Visits++
		ps.Spent -= t.Amount
	}
	out := make([]PayeeSummary, 0, len(byPayee))
	for _, ps := range byPayee {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Visits != out[j].Visits {
			return out[i].Visits > out[j].Visits
		}
		if out[i].Spent != out[j].Spent {
			return out[i].Spent > out[j].Spent
		}
		return out[i].Payee < out[j].Payee
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Verify checks each account's reported cleared balance against the sum of
// its cleared and reconciled transactions. Mismatches are returned for the
// caller to flag; they do not invalidate the snapshot.
func (s *Snapshot) Verify() []Inconsistency {
	sums := map[string]Milliunits{}
	for _, t := range s.Transactions {
		if t.Cleared == Cleared || t.Cleared == Reconciled {
			sums[t.AccountID] += t.Amount
		}
	}
	var out []Inconsistency
	for _, a := range s.Accounts {
		if sums[a.ID] != a.ClearedBalance {
			out = append(out, Inconsistency{
				Account:  a.Name,
				Reported: a.ClearedBalance,
				Computed: sums[a.ID],
			})
		}
	}
	return out
}

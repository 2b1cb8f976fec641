package ynab

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/yurifrl/ynabsite/pkg/models"
)

// LoadSnapshotFile reads a saved YNAB transactions payload (the body of
// GET /budgets/{id}/transactions) and turns it into a snapshot without
// touching the network. Accounts are synthesized from the transaction
// feed, so their cleared balances are consistent by construction.
func LoadSnapshotFile(path string) (*models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}

	var env transactionsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing snapshot file %s: %w", path, err)
	}

	snap := &models.Snapshot{BudgetID: "local"}
	balances := map[string]*models.Account{}
	for _, t := range env.Data.Transactions {
		if t == nil || t.Deleted {
			continue
		}
		tx := convertTransaction(t)
		snap.Transactions = append(snap.Transactions, tx)

		a, ok := balances[tx.AccountID]
		if !ok {
			a = &models.Account{ID: tx.AccountID, Name: tx.AccountName, OnBudget: true}
			balances[tx.AccountID] = a
		}
		a.Balance += tx.Amount
		if tx.Cleared == models.Cleared || tx.Cleared == models.Reconciled {
			a.ClearedBalance += tx.Amount
		} else {
			a.UnclearedBalance += tx.Amount
		}
		// The snapshot timestamp is derived from the data itself so
		// that rendering a saved file is fully reproducible.
		if tx.Date.After(snap.AsOf) {
			snap.AsOf = tx.Date
		}
	}

	for _, a := range balances {
		snap.Accounts = append(snap.Accounts, *a)
	}
	sort.Slice(snap.Accounts, func(i, j int) bool {
		return snap.Accounts[i].Name < snap.Accounts[j].Name
	})
	return snap, nil
}

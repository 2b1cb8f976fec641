package ynab

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/ynabsite/pkg/models"
)

func TestLoadSnapshotFile(t *testing.T) {
	payload := `{"data":{"transactions":[
		{"id":"t1","date":"2016-10-31","amount":-5000,"memo":"DigitalOcean","cleared":"reconciled",
		 "approved":true,"account_id":"a1","account_name":"Chase Checking",
		 "payee_name":"DigitalOcean","category_name":"Online Subscriptions","deleted":false},
		{"id":"t2","date":"2016-11-02","amount":-1200,"memo":null,"cleared":"uncleared",
		 "approved":true,"account_id":"a1","account_name":"Chase Checking",
		 "payee_name":"Corner Cafe","category_name":null,"deleted":false},
		{"id":"t3","date":"2016-10-01","amount":200000,"memo":null,"cleared":"cleared",
		 "approved":true,"account_id":"a2","account_name":"Fidelity 401(k)",
		 "payee_name":"Starting Balance","category_name":null,"deleted":false}
	]}}`

	path := filepath.Join(t.TempDir(), "transactions.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	snap, err := LoadSnapshotFile(path)
	require.NoError(t, err)

	require.Len(t, snap.Transactions, 3)
	require.Len(t, snap.Accounts, 2)
	assert.Equal(t, "local", snap.BudgetID)
	assert.Equal(t, time.Date(2016, 11, 2, 0, 0, 0, 0, time.UTC), snap.AsOf)

	// Accounts are sorted by name and balanced from the feed itself.
	assert.Equal(t, "Chase Checking", snap.Accounts[0].Name)
	assert.Equal(t, models.Milliunits(-6200), snap.Accounts[0].Balance)
	assert.Equal(t, models.Milliunits(-5000), snap.Accounts[0].ClearedBalance)
	assert.Equal(t, models.Milliunits(-1200), snap.Accounts[0].UnclearedBalance)
	assert.Equal(t, "Fidelity 401(k)", snap.Accounts[1].Name)

	// Synthesized accounts always pass the consistency check.
	assert.Empty(t, snap.Verify())
}

func TestLoadSnapshotFileMissing(t *testing.T) {
	_, err := LoadSnapshotFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadSnapshotFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadSnapshotFile(path)
	assert.Error(t, err)
}

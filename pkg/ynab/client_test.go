package ynab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/ynabsite/pkg/models"
)

const accountsJSON = `{"data":{"accounts":[
	{"id":"a1","name":"Checking","type":"checking","on_budget":true,"closed":false,
	 "balance":-5000,"cleared_balance":-5000,"uncleared_balance":0,"deleted":false},
	{"id":"a2","name":"Savings","type":"savings","on_budget":true,"closed":false,
	 "balance":100000,"cleared_balance":100000,"uncleared_balance":0,"deleted":false},
	{"id":"a3","name":"Old","type":"checking","on_budget":true,"closed":true,
	 "balance":0,"cleared_balance":0,"uncleared_balance":0,"deleted":true}
]}}`

const a1TransactionsJSON = `{"data":{"transactions":[
	{"id":"t1","date":"2025-03-17","amount":-5000,"memo":"DigitalOcean","cleared":"reconciled",
	 "approved":true,"account_id":"a1","account_name":"Checking",
	 "payee_name":"DigitalOcean","category_name":"Online Subscriptions","deleted":false},
	{"id":"t2","date":"2025-03-19","amount":-1200,"memo":null,"cleared":"uncleared",
	 "approved":true,"account_id":"a1","account_name":"Checking",
	 "payee_name":"Corner Cafe","category_name":null,"deleted":false},
	{"id":"t3","date":"2025-03-20","amount":-999,"memo":null,"cleared":"cleared",
	 "approved":true,"account_id":"a1","account_name":"Checking",
	 "payee_name":"Ghost","category_name":null,"deleted":true}
]}}`

const a2TransactionsJSON = `{"data":{"transactions":[
	{"id":"t4","date":"2025-01-02","amount":100000,"memo":null,"cleared":"cleared",
	 "approved":true,"account_id":"a2","account_name":"Savings",
	 "payee_name":"Starting Balance","category_name":"Inflow: Ready to Assign","deleted":false}
]}}`

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithRetryInterval(time.Millisecond),
		WithClock(func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }),
	}, opts...)
	c, err := New("test-token", opts...)
	require.NoError(t, err)
	return c
}

func fakeAPI(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/budgets/last-used/accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Write([]byte(accountsJSON))
	})
	mux.HandleFunc("/budgets/last-used/accounts/a1/transactions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(a1TransactionsJSON))
	})
	mux.HandleFunc("/budgets/last-used/accounts/a2/transactions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(a2TransactionsJSON))
	})
	return mux
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestFetchSnapshot(t *testing.T) {
	c := newTestClient(t, fakeAPI(t))

	snap, err := c.FetchSnapshot(context.Background(), "last-used")
	require.NoError(t, err)

	// Deleted account and deleted transaction are dropped; everything
	// else arrives exactly once.
	require.Len(t, snap.Accounts, 2)
	require.Len(t, snap.Transactions, 3)
	assert.Equal(t, "last-used", snap.BudgetID)
	assert.Equal(t, time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC), snap.AsOf)

	assert.Equal(t, models.Account{
		ID: "a1", Name: "Checking", Type: "checking", OnBudget: true,
		Balance: -5000, ClearedBalance: -5000,
	}, snap.Accounts[0])

	tx := snap.Transactions[0]
	assert.Equal(t, "DigitalOcean", tx.Payee)
	assert.Equal(t, "Online Subscriptions", tx.Category)
	assert.Equal(t, models.Milliunits(-5000), tx.Amount)
	assert.Equal(t, models.Reconciled, tx.Cleared)
	assert.Equal(t, "DigitalOcean", tx.Memo)

	// Missing category maps to the Uncategorized bucket at aggregation
	// time, not at decode time.
	assert.Equal(t, "", snap.Transactions[1].Category)
	assert.Equal(t, models.Uncategorized, snap.Transactions[1].CategoryName())

	assert.Empty(t, snap.Verify())
}

func TestAuthFailureIsImmediate(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.FetchSnapshot(context.Background(), "last-used")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "401 must not be retried")
}

func TestClientErrorIsImmediate(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such budget", http.StatusNotFound)
	}))

	_, err := c.FetchSnapshot(context.Background(), "nope")
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRateLimitHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	mux := fakeAPI(t)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		mux.ServeHTTP(w, r)
	}))

	snap, err := c.FetchSnapshot(context.Background(), "last-used")
	require.NoError(t, err)
	assert.Len(t, snap.Transactions, 3)
}

func TestTransientFailuresAreRetried(t *testing.T) {
	var calls atomic.Int32
	mux := fakeAPI(t)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		mux.ServeHTTP(w, r)
	}))

	_, err := c.FetchSnapshot(context.Background(), "last-used")
	require.NoError(t, err)
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}), WithMaxAttempts(2))

	_, err := c.FetchSnapshot(context.Background(), "last-used")
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.Equal(t, int32(2), calls.Load())

	var transientErr *TransientError
	assert.ErrorAs(t, err, &transientErr)
}

func TestContextCancellation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchSnapshot(ctx, "last-used")
	assert.ErrorIs(t, err, context.Canceled)
}

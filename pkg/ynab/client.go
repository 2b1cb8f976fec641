package ynab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brunomvsouza/ynab.go/api/account"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/yurifrl/ynabsite/pkg/models"
)

// DefaultBaseURL is the production YNAB API endpoint.
const DefaultBaseURL = "https://api.ynab.com/v1"

const (
	defaultTimeout       = 30 * time.Second
	defaultMaxAttempts   = 3
	defaultRetryInterval = 500 * time.Millisecond
)

// Client fetches budget data over the YNAB HTTP API. The transport is
// owned here rather than delegated to the SDK client so that retry,
// timeout and rate-limit behavior stay under our control; the SDK still
// supplies the wire types and date handling.
type Client struct {
	baseURL       string
	token         string
	httpClient    *http.Client
	logger        *log.Logger
	maxAttempts   int
	retryInterval time.Duration
	now           func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMaxAttempts bounds retries of transient failures.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithRetryInterval sets the initial backoff interval.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryInterval = d }
}

// WithClock overrides the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New builds a client for the given bearer token.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	c := &Client{
		baseURL:       DefaultBaseURL,
		token:         token,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		logger:        log.Default(),
		maxAttempts:   defaultMaxAttempts,
		retryInterval: defaultRetryInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type accountsEnvelope struct {
	Data struct {
		Accounts []*account.Account `json:"accounts"`
	} `json:"data"`
}

type transactionsEnvelope struct {
	Data struct {
		Transactions []*transaction.Transaction `json:"transactions"`
	} `json:"data"`
}

// FetchSnapshot assembles the full budget state: the account list, then
// one transactions request per account. The snapshot is complete when the
// call returns; nothing mutates it afterwards.
func (c *Client) FetchSnapshot(ctx context.Context, budgetID string) (*models.Snapshot, error) {
	var accEnv accountsEnvelope
	if err := c.get(ctx, fmt.Sprintf("/budgets/%s/accounts", budgetID), &accEnv); err != nil {
		return nil, fmt.Errorf("fetching accounts: %w", err)
	}

	snap := &models.Snapshot{BudgetID: budgetID, AsOf: c.now().UTC()}
	for _, a := range accEnv.Data.Accounts {
		if a == nil || a.Deleted {
			continue
		}
		snap.Accounts = append(snap.Accounts, convertAccount(a))
	}

	for _, a := range snap.Accounts {
		var txEnv transactionsEnvelope
		path := fmt.Sprintf("/budgets/%s/accounts/%s/transactions", budgetID, a.ID)
		if err := c.get(ctx, path, &txEnv); err != nil {
			return nil, fmt.Errorf("fetching transactions for account %q: %w", a.Name, err)
		}
		for _, t := range txEnv.Data.Transactions {
			if t == nil || t.Deleted {
				continue
			}
			snap.Transactions = append(snap.Transactions, convertTransaction(t))
		}
	}

	c.logger.Info("fetched snapshot",
		"budget", budgetID,
		"accounts", len(snap.Accounts),
		"transactions", len(snap.Transactions))
	return snap, nil
}

// get performs one authenticated GET with bounded retries. Auth and other
// 4xx failures return immediately; rate limits honor the advertised wait;
// transient failures back off exponentially until the attempt budget runs
// out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.Reset()

	var last error
	for attempt := 1; ; attempt++ {
		err := c.doGet(ctx, path, out)
		if err == nil {
			return nil
		}

		var (
			rateErr      *RateLimitError
			transientErr *TransientError
		)
		var wait time.Duration
		switch {
		case errors.As(err, &rateErr):
			wait = bo.NextBackOff()
			if rateErr.RetryAfter > wait {
				wait = rateErr.RetryAfter
			}
		case errors.As(err, &transientErr):
			wait = bo.NextBackOff()
		default:
			return err
		}

		last = err
		if attempt >= c.maxAttempts {
			return &ExhaustedError{Attempts: attempt, Last: last}
		}
		c.logger.Warn("retrying request", "path", path, "attempt", attempt, "wait", wait, "err", err)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.Unmarshal(body, out); err != nil {
			return &RequestError{StatusCode: resp.StatusCode, Body: "undecodable response: " + err.Error()}
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode >= 500:
		return &TransientError{StatusCode: resp.StatusCode, Err: fmt.Errorf("server error: %s", snippet(body))}
	default:
		return &RequestError{StatusCode: resp.StatusCode, Body: snippet(body)}
	}
}

func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func convertAccount(a *account.Account) models.Account {
	return models.Account{
		ID:               a.ID,
		Name:             a.Name,
		Type:             string(a.Type),
		OnBudget:         a.OnBudget,
		Closed:           a.Closed,
		Balance:          models.Milliunits(a.Balance),
		ClearedBalance:   models.Milliunits(a.ClearedBalance),
		UnclearedBalance: models.Milliunits(a.UnclearedBalance),
	}
}

func convertTransaction(t *transaction.Transaction) models.Transaction {
	tx := models.Transaction{
		ID:          t.ID,
		Date:        t.Date.Time,
		Amount:      models.Milliunits(t.Amount),
		Cleared:     models.ClearedStatus(t.Cleared),
		AccountID:   t.AccountID,
		AccountName: t.AccountName,
	}
	if t.PayeeName != nil {
		tx.Payee = *t.PayeeName
	}
	if t.CategoryName != nil {
		tx.Category = *t.CategoryName
	}
	if t.Memo != nil {
		tx.Memo = *t.Memo
	}
	return tx
}

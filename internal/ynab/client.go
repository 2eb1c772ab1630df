// Package ynab is a minimal client for the parts of the YNAB API the
// importer needs: creating transactions, listing them, and listing budgets
// and accounts.
package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/cleared-dev/ofxsync/internal/model"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.ynab.com/v1"

// Field limits enforced by the API.
const (
	maxPayeeLen = 200
	maxMemoLen  = 500
)

// TransientError is a failure worth retrying: the request never got an
// answer, or the server answered 429 or 5xx.
type TransientError struct {
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("ynab: transient: %v", e.Err)
	}
	return fmt.Sprintf("ynab: transient: HTTP %d: %v", e.StatusCode, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Temporary reports that the operation may succeed if repeated.
func (e *TransientError) Temporary() bool { return true }

// APIError is a non-retryable error response.
type APIError struct {
	StatusCode int
	ID         string
	Name       string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ynab: HTTP %d %s: %s", e.StatusCode, e.Name, e.Detail)
	}
	return fmt.Sprintf("ynab: HTTP %d", e.StatusCode)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration // per request; zero means no extra deadline
	UserAgent  string
}

// Client talks to the YNAB API.
type Client struct {
	base      *url.URL
	token     string
	userAgent string
	http      *http.Client
	timeout   time.Duration
}

// New returns a client for opts.
func New(opts Options) (*Client, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		base:      base,
		token:     opts.Token,
		userAgent: opts.UserAgent,
		http:      hc,
		timeout:   opts.Timeout,
	}, nil
}

// Submit creates txns in budget. Transactions whose import id the budget
// already holds come back in SubmitResult.DuplicateImportIDs instead of
// Created.
func (c *Client) Submit(ctx context.Context, budget uuid.UUID, txns []model.NewTransaction) (model.SubmitResult, error) {
	payload := transactionsPayload{Transactions: make([]saveTransaction, 0, len(txns))}
	for _, t := range txns {
		payload.Transactions = append(payload.Transactions, saveTransaction{
			AccountID: t.AccountID.String(),
			Date:      t.Date.String(),
			Amount:    t.Amount,
			PayeeName: truncate(t.PayeeName, maxPayeeLen),
			Memo:      truncate(t.Memo, maxMemoLen),
			Cleared:   string(t.Cleared),
			ImportID:  t.ImportID,
		})
	}

	var resp saveTransactionsResponse
	if err := c.do(ctx, http.MethodPost, c.path("budgets", budget.String(), "transactions"), payload, &resp); err != nil {
		return model.SubmitResult{}, err
	}

	res := model.SubmitResult{DuplicateImportIDs: resp.Data.DuplicateImportIDs}
	for _, t := range resp.Data.Transactions {
		ct := model.CreatedTransaction{ID: t.ID}
		if t.ImportID != nil {
			ct.ImportID = *t.ImportID
		}
		res.Created = append(res.Created, ct)
	}
	return res, nil
}

// ListByAccount returns every transaction of account, deleted ones included.
func (c *Client) ListByAccount(ctx context.Context, budget, account uuid.UUID) ([]model.Transaction, error) {
	var resp transactionsResponse
	p := c.path("budgets", budget.String(), "accounts", account.String(), "transactions")
	if err := c.do(ctx, http.MethodGet, p, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]model.Transaction, 0, len(resp.Data.Transactions))
	for _, d := range resp.Data.Transactions {
		t, err := d.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Budget is a remote budget summary.
type Budget struct {
	ID   uuid.UUID
	Name string
}

// Account is a remote account summary.
type Account struct {
	ID      uuid.UUID
	Name    string
	Closed  bool
	Deleted bool
}

// ListBudgets returns the budgets the token can see.
func (c *Client) ListBudgets(ctx context.Context) ([]Budget, error) {
	var resp budgetsResponse
	if err := c.do(ctx, http.MethodGet, c.path("budgets"), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]Budget, 0, len(resp.Data.Budgets))
	for _, b := range resp.Data.Budgets {
		id, err := uuid.Parse(b.ID)
		if err != nil {
			return nil, fmt.Errorf("budget %q: %w", b.Name, err)
		}
		out = append(out, Budget{ID: id, Name: b.Name})
	}
	return out, nil
}

// ListAccounts returns the accounts of budget.
func (c *Client) ListAccounts(ctx context.Context, budget uuid.UUID) ([]Account, error) {
	var resp accountsResponse
	if err := c.do(ctx, http.MethodGet, c.path("budgets", budget.String(), "accounts"), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(resp.Data.Accounts))
	for _, a := range resp.Data.Accounts {
		id, err := uuid.Parse(a.ID)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", a.Name, err)
		}
		out = append(out, Account{ID: id, Name: a.Name, Closed: a.Closed, Deleted: a.Deleted})
	}
	return out, nil
}

func (c *Client) path(segments ...string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/")
	for _, s := range segments {
		u.Path += "/" + s
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &TransientError{StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil {
			apiErr.ID, apiErr.Name, apiErr.Detail = er.Error.ID, er.Error.Name, er.Error.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	return nil
}

func (d transactionDetail) toModel() (model.Transaction, error) {
	date, err := civil.ParseDate(d.Date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: date: %w", d.ID, err)
	}
	acct, err := uuid.Parse(d.AccountID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: account: %w", d.ID, err)
	}
	t := model.Transaction{
		ID:        d.ID,
		AccountID: acct,
		Date:      date,
		Amount:    d.Amount,
		Cleared:   model.ClearedStatus(d.Cleared),
		Deleted:   d.Deleted,
	}
	if d.PayeeName != nil {
		t.PayeeName = *d.PayeeName
	}
	if d.Memo != nil {
		t.Memo = *d.Memo
	}
	if d.ImportID != nil {
		t.ImportID = *d.ImportID
	}
	return t, nil
}

// truncate shortens s to at most n runes.
func truncate(s *string, n int) *string {
	if s == nil || utf8.RuneCountInString(*s) <= n {
		return s
	}
	r := []rune(*s)
	out := string(r[:n])
	return &out
}

package ynab

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ofxsync/internal/model"
)

var (
	budgetID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	accountID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/v1", Token: "secret", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func strp(s string) *string { return &s }

func TestSubmit(t *testing.T) {
	var got transactionsPayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/budgets/"+budgetID.String()+"/transactions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{
			"transaction_ids":["t-1"],
			"transactions":[{"id":"t-1","date":"2024-03-15","amount":-12500,"account_id":"`+accountID.String()+`","import_id":"YNAB:2024-03-15:-12500:1"}],
			"duplicate_import_ids":["YNAB:2024-03-15:-12500:2"],
			"server_knowledge":10}}`)
	})

	res, err := c.Submit(context.Background(), budgetID, []model.NewTransaction{
		{
			AccountID: accountID,
			Date:      civil.Date{Year: 2024, Month: 3, Day: 15},
			Amount:    -12500,
			PayeeName: strp("Grocer"),
			Cleared:   model.Cleared,
			ImportID:  "YNAB:2024-03-15:-12500:1",
		},
		{
			AccountID: accountID,
			Date:      civil.Date{Year: 2024, Month: 3, Day: 15},
			Amount:    -12500,
			Memo:      strp("second"),
			Cleared:   model.Cleared,
			ImportID:  "YNAB:2024-03-15:-12500:2",
		},
	})
	require.NoError(t, err)

	require.Len(t, got.Transactions, 2)
	first := got.Transactions[0]
	assert.Equal(t, accountID.String(), first.AccountID)
	assert.Equal(t, "2024-03-15", first.Date)
	assert.Equal(t, int64(-12500), first.Amount)
	assert.Equal(t, "Grocer", *first.PayeeName)
	assert.Nil(t, first.Memo)
	assert.Equal(t, "cleared", first.Cleared)
	assert.Nil(t, got.Transactions[1].PayeeName)

	assert.Equal(t, []model.CreatedTransaction{{ID: "t-1", ImportID: "YNAB:2024-03-15:-12500:1"}}, res.Created)
	assert.Equal(t, []string{"YNAB:2024-03-15:-12500:2"}, res.DuplicateImportIDs)
}

func TestSubmitOmitsAbsentFields(t *testing.T) {
	var raw map[string][]map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = io.WriteString(w, `{"data":{"transactions":[],"duplicate_import_ids":[]}}`)
	})

	_, err := c.Submit(context.Background(), budgetID, []model.NewTransaction{{AccountID: accountID, ImportID: "x"}})
	require.NoError(t, err)

	txn := raw["transactions"][0]
	assert.NotContains(t, txn, "payee_name")
	assert.NotContains(t, txn, "memo")
}

func TestSubmitTruncatesLongFields(t *testing.T) {
	var got transactionsPayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"data":{}}`)
	})

	long := strings.Repeat("é", 600)
	_, err := c.Submit(context.Background(), budgetID, []model.NewTransaction{
		{AccountID: accountID, PayeeName: &long, Memo: &long},
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", maxPayeeLen), *got.Transactions[0].PayeeName)
	assert.Equal(t, strings.Repeat("é", maxMemoLen), *got.Transactions[0].Memo)
	assert.Len(t, long, 1200, "input left untouched")
}

func TestTransientErrors(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := c.Submit(context.Background(), budgetID, nil)
		var te *TransientError
		require.True(t, errors.As(err, &te), "status %d", status)
		assert.Equal(t, status, te.StatusCode)
		assert.True(t, te.Temporary())
	}
}

func TestTransportErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: base, Token: "x"})
	require.NoError(t, err)
	_, err = c.ListBudgets(context.Background())
	var te *TransientError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"id":"404.2","name":"resource_not_found","detail":"Resource not found"}}`)
	})

	_, err := c.ListAccounts(context.Background(), budgetID)
	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusNotFound, ae.StatusCode)
	assert.Equal(t, "404.2", ae.ID)
	assert.Equal(t, "Resource not found", ae.Detail)

	var te *TransientError
	assert.False(t, errors.As(err, &te))
}

func TestListByAccount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/budgets/"+budgetID.String()+"/accounts/"+accountID.String()+"/transactions", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":{"transactions":[
			{"id":"a","date":"2024-01-02","amount":1000,"account_id":"`+accountID.String()+`","payee_name":"Payroll","memo":null,"cleared":"cleared","import_id":"YNAB:2024-01-02:1000:1","deleted":false},
			{"id":"b","date":"2024-01-03","amount":-500,"account_id":"`+accountID.String()+`","payee_name":null,"cleared":"uncleared","import_id":null,"deleted":true}
		]}}`)
	})

	txns, err := c.ListByAccount(context.Background(), budgetID, accountID)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, model.Transaction{
		ID:        "a",
		AccountID: accountID,
		Date:      civil.Date{Year: 2024, Month: 1, Day: 2},
		Amount:    1000,
		PayeeName: "Payroll",
		Cleared:   model.Cleared,
		ImportID:  "YNAB:2024-01-02:1000:1",
	}, txns[0])
	assert.True(t, txns[1].Deleted)
	assert.Empty(t, txns[1].ImportID)
}

func TestListBudgetsAndAccounts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/budgets":
			_, _ = io.WriteString(w, `{"data":{"budgets":[{"id":"`+budgetID.String()+`","name":"Household"}]}}`)
		case "/v1/budgets/" + budgetID.String() + "/accounts":
			_, _ = io.WriteString(w, `{"data":{"accounts":[{"id":"`+accountID.String()+`","name":"Checking","closed":true,"deleted":false}]}}`)
		default:
			http.NotFound(w, r)
		}
	})

	budgets, err := c.ListBudgets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Budget{{ID: budgetID, Name: "Household"}}, budgets)

	accounts, err := c.ListAccounts(context.Background(), budgetID)
	require.NoError(t, err)
	assert.Equal(t, []Account{{ID: accountID, Name: "Checking", Closed: true}}, accounts)
}

func TestUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ofxsync/test", r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, `{"data":{"budgets":[]}}`)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, Token: "x", UserAgent: "ofxsync/test"})
	require.NoError(t, err)
	budgets, err := c.ListBudgets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, budgets)
}

package model

import (
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// ClearedStatus is the reconciliation flag of a remote transaction.
type ClearedStatus string

const (
	Cleared    ClearedStatus = "cleared"
	Uncleared  ClearedStatus = "uncleared"
	Reconciled ClearedStatus = "reconciled"
)

// Budget is a remote budget known to the local store.
type Budget struct {
	ID   int64 // local row id
	UUID uuid.UUID
	Name string
}

// Account is a remote account known to the local store.
type Account struct {
	ID       int64 // local row id
	BudgetID int64 // local budget row id
	UUID     uuid.UUID
	Name     string
}

// NewTransaction is a transaction submitted to the remote ledger.
type NewTransaction struct {
	AccountID uuid.UUID
	Date      civil.Date
	Amount    int64 // milliunits
	PayeeName *string
	Memo      *string
	Cleared   ClearedStatus
	ImportID  string
}

// CreatedTransaction identifies a transaction the remote accepted.
type CreatedTransaction struct {
	ID       string
	ImportID string
}

// SubmitResult is the outcome of one batch submission.
type SubmitResult struct {
	Created            []CreatedTransaction
	DuplicateImportIDs []string
}

// Transaction is a transaction as stored by the remote ledger.
type Transaction struct {
	ID        string
	AccountID uuid.UUID
	Date      civil.Date
	Amount    int64 // milliunits
	PayeeName string
	Memo      string
	Cleared   ClearedStatus
	ImportID  string
	Deleted   bool
}

package model

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Kind is the bank transaction type code of a statement entry.
type Kind string

const (
	KindCredit        Kind = "CREDIT"
	KindDebit         Kind = "DEBIT"
	KindInterest      Kind = "INT"
	KindDividend      Kind = "DIV"
	KindFee           Kind = "FEE"
	KindServiceCharge Kind = "SRVCHG"
	KindDeposit       Kind = "DEP"
	KindATM           Kind = "ATM"
	KindPOS           Kind = "POS"
	KindTransfer      Kind = "XFER"
	KindCheck         Kind = "CHECK"
	KindPayment       Kind = "PAYMENT"
	KindCash          Kind = "CASH"
	KindDirectDeposit Kind = "DIRECTDEP"
	KindDirectDebit   Kind = "DIRECTDEBIT"
	KindRepeatPayment Kind = "REPEATPMT"
	KindHold          Kind = "HOLD"
	KindOther         Kind = "OTHER"
)

// RawTransaction is one STMTTRN entry of a statement export.
type RawTransaction struct {
	Kind   Kind
	Posted civil.Date
	Amount decimal.Decimal // negative = outflow, positive = inflow
	Payee  *string         // nil when the NAME field is absent
	Memo   *string         // nil when the MEMO field is absent
}

// PayeeOr returns the payee name, or def when it is absent.
func (t RawTransaction) PayeeOr(def string) string {
	if t.Payee == nil {
		return def
	}
	return *t.Payee
}

// MemoOr returns the memo, or def when it is absent.
func (t RawTransaction) MemoOr(def string) string {
	if t.Memo == nil {
		return def
	}
	return *t.Memo
}

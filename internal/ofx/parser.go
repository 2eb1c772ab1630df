// Package ofx parses the transaction list of OFX/QFX statement exports.
//
// Only the BANKTRANLIST element is interpreted. Version 1 (SGML) files with
// unterminated leaf tags and version 2 (XML) files are both accepted.
package ofx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ofxsync/internal/model"
	"github.com/cleared-dev/ofxsync/internal/ofxtime"
)

// ErrNotOFX is returned for documents without an <OFX> root element.
var ErrNotOFX = errors.New("no <OFX> root element")

// ErrNoTransactionList is returned for documents without a BANKTRANLIST.
var ErrNoTransactionList = errors.New("no BANKTRANLIST element")

// FormatError wraps every error that makes a document unusable.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string { return "malformed statement: " + e.Err.Error() }

func (e *FormatError) Unwrap() error { return e.Err }

// UnknownKindError reports a TRNTYPE code outside the OFX code table.
type UnknownKindError struct {
	Code string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown transaction type %q", e.Code)
}

// FieldError locates a bad or missing field of the index-th transaction.
type FieldError struct {
	Index int // 0-based position in the transaction list
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("transaction %d: %s: %v", e.Index+1, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

var errMissing = errors.New("missing")

const (
	tagTranList = "BANKTRANLIST"
	tagStmtTrn  = "STMTTRN"

	fieldType   = "TRNTYPE"
	fieldPosted = "DTPOSTED"
	fieldAmount = "TRNAMT"
	fieldName   = "NAME"
	fieldMemo   = "MEMO"
	fieldPayee  = "PAYEE.NAME"
)

// Parse returns the transactions of a statement export in file order.
// A single malformed transaction fails the whole document.
func Parse(data []byte) ([]model.RawTransaction, error) {
	start := rootIndex(data)
	if start < 0 {
		return nil, &FormatError{Err: ErrNotOFX}
	}

	body, err := decodeBody(data[:start], data[start:])
	if err != nil {
		return nil, &FormatError{Err: fmt.Errorf("decoding body: %w", err)}
	}

	records, err := extract(newNormalizer(escapeAmpersands(body)))
	if err != nil {
		return nil, &FormatError{Err: err}
	}

	txns := make([]model.RawTransaction, 0, len(records))
	for i, rec := range records {
		txn, err := rec.transaction()
		if err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				fe.Index = i
			}
			return nil, &FormatError{Err: err}
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// record holds the text of the fields of one STMTTRN, keyed by their path
// below STMTTRN ("NAME", "PAYEE.NAME").
type record map[string]string

// extract collects the STMTTRN records of the first BANKTRANLIST. Events
// after its end are never read.
func extract(n *normalizer) ([]record, error) {
	var (
		records []record
		inList  bool
		depth   int // depth below BANKTRANLIST
		cur     record
		path    []string
	)

	for {
		t, ok := n.next()
		if !ok {
			break
		}

		if !inList {
			if t.kind == startTag && t.name == tagTranList {
				inList = true
				records = []record{}
			}
			continue
		}

		switch t.kind {
		case startTag:
			depth++
			switch {
			case depth == 1 && t.name == tagStmtTrn:
				cur = record{}
				path = path[:0]
			case cur != nil:
				path = append(path, t.name)
				key := strings.Join(path, ".")
				if _, seen := cur[key]; !seen {
					cur[key] = ""
				}
			}

		case textToken:
			if cur != nil && len(path) > 0 {
				key := strings.Join(path, ".")
				cur[key] += t.text
			}

		case endTag:
			if depth == 0 {
				// End of BANKTRANLIST.
				return records, nil
			}
			depth--
			switch {
			case depth == 0 && t.name == tagStmtTrn && cur != nil:
				records = append(records, cur)
				cur = nil
			case cur != nil && len(path) > 0:
				path = path[:len(path)-1]
			}
		}
	}

	if !inList {
		return nil, ErrNoTransactionList
	}
	return records, nil
}

// value returns the cleaned text of a field and whether it is present with
// non-empty content.
func (r record) value(field string) (string, bool) {
	raw, ok := r[field]
	if !ok {
		return "", false
	}
	v := strings.TrimSpace(expandEntities(raw))
	return v, v != ""
}

func (r record) transaction() (model.RawTransaction, error) {
	var txn model.RawTransaction

	code, ok := r.value(fieldType)
	if !ok {
		return txn, &FieldError{Field: fieldType, Err: errMissing}
	}
	kind, err := parseKind(code)
	if err != nil {
		return txn, &FieldError{Field: fieldType, Err: err}
	}
	txn.Kind = kind

	posted, ok := r.value(fieldPosted)
	if !ok {
		return txn, &FieldError{Field: fieldPosted, Err: errMissing}
	}
	txn.Posted, err = ofxtime.Normalize(posted)
	if err != nil {
		return txn, &FieldError{Field: fieldPosted, Err: err}
	}

	amount, ok := r.value(fieldAmount)
	if !ok {
		return txn, &FieldError{Field: fieldAmount, Err: errMissing}
	}
	txn.Amount, err = parseAmount(amount)
	if err != nil {
		return txn, &FieldError{Field: fieldAmount, Err: err}
	}

	if name, ok := r.value(fieldName); ok {
		txn.Payee = &name
	} else if name, ok := r.value(fieldPayee); ok {
		txn.Payee = &name
	}
	if memo, ok := r.value(fieldMemo); ok {
		txn.Memo = &memo
	}
	return txn, nil
}

// parseKind validates code against the OFX TRNTYPE table.
func parseKind(code string) (model.Kind, error) {
	tt, err := ofxgo.NewTrnType(strings.ToUpper(code))
	if err != nil {
		return "", &UnknownKindError{Code: code}
	}
	switch tt {
	case ofxgo.TrnTypeCredit:
		return model.KindCredit, nil
	case ofxgo.TrnTypeDebit:
		return model.KindDebit, nil
	case ofxgo.TrnTypeInt:
		return model.KindInterest, nil
	case ofxgo.TrnTypeDiv:
		return model.KindDividend, nil
	case ofxgo.TrnTypeFee:
		return model.KindFee, nil
	case ofxgo.TrnTypeSrvChg:
		return model.KindServiceCharge, nil
	case ofxgo.TrnTypeDep:
		return model.KindDeposit, nil
	case ofxgo.TrnTypeATM:
		return model.KindATM, nil
	case ofxgo.TrnTypePOS:
		return model.KindPOS, nil
	case ofxgo.TrnTypeXfer:
		return model.KindTransfer, nil
	case ofxgo.TrnTypeCheck:
		return model.KindCheck, nil
	case ofxgo.TrnTypePayment:
		return model.KindPayment, nil
	case ofxgo.TrnTypeCash:
		return model.KindCash, nil
	case ofxgo.TrnTypeDirectDep:
		return model.KindDirectDeposit, nil
	case ofxgo.TrnTypeDirectDebit:
		return model.KindDirectDebit, nil
	case ofxgo.TrnTypeRepeatPmt:
		return model.KindRepeatPayment, nil
	case ofxgo.TrnTypeHold:
		return model.KindHold, nil
	case ofxgo.TrnTypeOther:
		return model.KindOther, nil
	}
	return "", &UnknownKindError{Code: code}
}

// parseAmount reads a signed decimal. A comma is accepted as the decimal
// separator when no period is present.
func parseAmount(s string) (decimal.Decimal, error) {
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad amount %q: %w", s, err)
	}
	return d, nil
}

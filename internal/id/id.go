package id

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DefaultNamespace matches the prefix the remote's own file importer uses,
// so ids produced here collide with ids produced there.
const DefaultNamespace = "YNAB"

// milliPlaces is the number of decimal places in a milliunit amount.
const milliPlaces = 3

// Key identifies one transaction instance within a statement.
type Key struct {
	Date       civil.Date
	Milli      int64
	Occurrence int // 1-based
}

// FormatImportID returns an import ID like "YNAB:2024-11-16:-7880:1".
func FormatImportID(namespace string, k Key) string {
	return fmt.Sprintf("%s:%s:%d:%d", namespace, k.Date, k.Milli, k.Occurrence)
}

// ParseImportID parses "YNAB:2024-11-16:-7880:1" into its namespace and key.
func ParseImportID(importID string) (namespace string, k Key, err error) {
	parts := strings.Split(importID, ":")
	if len(parts) != 4 {
		return "", Key{}, fmt.Errorf("invalid import ID format: %q", importID)
	}

	date, err := civil.ParseDate(parts[1])
	if err != nil {
		return "", Key{}, fmt.Errorf("invalid date in import ID %q: %w", importID, err)
	}

	milli, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", Key{}, fmt.Errorf("invalid amount in import ID %q: %w", importID, err)
	}

	occ, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", Key{}, fmt.Errorf("invalid occurrence in import ID %q: %w", importID, err)
	}
	if occ < 1 {
		return "", Key{}, fmt.Errorf("invalid occurrence in import ID %q: must be >= 1", importID)
	}

	return parts[0], Key{Date: date, Milli: milli, Occurrence: occ}, nil
}

// MinorUnits converts an amount to milliunits, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(milliPlaces).Shift(milliPlaces).IntPart()
}

// Set is the working set of import IDs already assigned while reconciling
// one file.
type Set map[string]struct{}

// Add records importID as taken.
func (s Set) Add(importID string) { s[importID] = struct{}{} }

// Has reports whether importID is taken.
func (s Set) Has(importID string) bool {
	_, ok := s[importID]
	return ok
}

// Builder derives import IDs within one namespace.
type Builder struct {
	namespace string
}

// NewBuilder returns a Builder for namespace.
func NewBuilder(namespace string) Builder {
	return Builder{namespace: namespace}
}

// ImportID returns the import ID of k.
func (b Builder) ImportID(k Key) string {
	return FormatImportID(b.namespace, k)
}

// Assign returns the key with the smallest occurrence >= 1 whose import ID
// is not in taken.
func (b Builder) Assign(date civil.Date, milli int64, taken Set) Key {
	return b.NextAfter(Key{Date: date, Milli: milli}, taken)
}

// NextAfter returns k with the smallest occurrence greater than
// k.Occurrence whose import ID is not in taken.
func (b Builder) NextAfter(k Key, taken Set) Key {
	k.Occurrence++
	for taken.Has(b.ImportID(k)) {
		k.Occurrence++
	}
	return k
}

// Package importlog keeps an append-only CSV record of every file import.
package importlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Status is the outcome of one file import.
type Status string

const (
	StatusDone        Status = "done"
	StatusIncomplete  Status = "incomplete"
	StatusFormatError Status = "format_error"
	StatusPathError   Status = "path_error"
	StatusError       Status = "error"
)

// Entry is one row of the import log.
type Entry struct {
	Timestamp time.Time
	File      string
	Budget    string
	Account   string
	Parsed    int
	Skipped   int
	Created   int
	Rounds    int
	Status    Status
	Detail    string
}

// Header is the CSV header of the import log.
const Header = "timestamp,file,budget,account,parsed,skipped,created,rounds,status,detail"

const (
	numFields  = 10
	colTime    = 0
	colFile    = 1
	colBudget  = 2
	colAccount = 3
	colParsed  = 4
	colSkipped = 5
	colCreated = 6
	colRounds  = 7
	colStatus  = 8
	colDetail  = 9
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTime] = e.Timestamp.Format(time.RFC3339)
	row[colFile] = e.File
	row[colBudget] = e.Budget
	row[colAccount] = e.Account
	row[colParsed] = strconv.Itoa(e.Parsed)
	row[colSkipped] = strconv.Itoa(e.Skipped)
	row[colCreated] = strconv.Itoa(e.Created)
	row[colRounds] = strconv.Itoa(e.Rounds)
	row[colStatus] = string(e.Status)
	row[colDetail] = e.Detail
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}

	var counts [4]int
	for i, col := range []int{colParsed, colSkipped, colCreated, colRounds} {
		if counts[i], err = strconv.Atoi(record[col]); err != nil {
			return Entry{}, fmt.Errorf("parsing column %d: %w", col+1, err)
		}
	}

	return Entry{
		Timestamp: ts,
		File:      record[colFile],
		Budget:    record[colBudget],
		Account:   record[colAccount],
		Parsed:    counts[0],
		Skipped:   counts[1],
		Created:   counts[2],
		Rounds:    counts[3],
		Status:    Status(record[colStatus]),
		Detail:    record[colDetail],
	}, nil
}

// Append writes entries to the log at path, creating it with a header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating import log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries of the log at path.
// A missing file yields no entries.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Package ofxtime converts statement timestamps to calendar dates.
//
// Accepted shapes are YYYYMMDD and YYYYMMDDhhmmss, each optionally followed
// by fractional seconds (.fff) and a bracketed offset such as [-5:EST],
// [+5.5:IST] or [0].
package ofxtime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// BadTimestampError reports a timestamp that matches no accepted shape.
type BadTimestampError struct {
	Raw string
	Err error
}

func (e *BadTimestampError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bad timestamp %q: %v", e.Raw, e.Err)
	}
	return fmt.Sprintf("bad timestamp %q", e.Raw)
}

func (e *BadTimestampError) Unwrap() error { return e.Err }

var timestampRe = regexp.MustCompile(`^(\d{8}|\d{14})(\.\d{1,9})?(?:\[\s*([+-]?\d{1,2})(?:\.(\d{1,2}))?\s*(?::\s*([A-Za-z][A-Za-z0-9_/+-]*)\s*)?\])?$`)

const (
	naiveLayout  = "20060102150405"
	offsetLayout = "20060102150405-0700"
)

// Normalize returns the calendar date written in raw.
//
// The date is the one reported in the timestamp's own zone; time of day is
// discarded and no conversion to UTC takes place.
func Normalize(raw string) (civil.Date, error) {
	t, err := Parse(raw)
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(t), nil
}

// Parse returns the instant written in raw. Timestamps without an offset
// are returned in UTC.
func Parse(raw string) (time.Time, error) {
	m := timestampRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return time.Time{}, &BadTimestampError{Raw: raw}
	}

	stamp := m[1]
	if len(stamp) == 8 {
		stamp += "000000"
	}

	frac := fraction(m[2])

	if m[3] == "" {
		t, err := time.Parse(naiveLayout, stamp)
		if err != nil {
			return time.Time{}, &BadTimestampError{Raw: raw, Err: err}
		}
		return t.Add(frac), nil
	}

	offset, err := normalizeOffset(m[3], m[4])
	if err != nil {
		return time.Time{}, &BadTimestampError{Raw: raw, Err: err}
	}
	t, err := time.Parse(offsetLayout, stamp+offset)
	if err != nil {
		return time.Time{}, &BadTimestampError{Raw: raw, Err: err}
	}
	if zone := m[5]; zone != "" {
		_, secs := t.Zone()
		t = t.In(time.FixedZone(strings.ToUpper(zone), secs))
	}
	return t.Add(frac), nil
}

// fraction converts ".211" into 211ms.
func fraction(s string) time.Duration {
	if s == "" {
		return 0
	}
	digits := s[1:]
	for len(digits) < 9 {
		digits += "0"
	}
	n, _ := strconv.Atoi(digits)
	return time.Duration(n)
}

// normalizeOffset turns ("-5", "") into "-0500" and ("+5", "5") into "+0530".
// The fractional part is a decimal fraction of an hour.
func normalizeOffset(hours, frac string) (string, error) {
	sign := "+"
	switch {
	case strings.HasPrefix(hours, "-"):
		sign = "-"
		hours = hours[1:]
	case strings.HasPrefix(hours, "+"):
		hours = hours[1:]
	}

	h, err := strconv.Atoi(hours)
	if err != nil {
		return "", fmt.Errorf("offset hours %q: %w", hours, err)
	}
	if h > 14 {
		return "", fmt.Errorf("offset %s%d out of range", sign, h)
	}

	minutes := 0
	if frac != "" {
		f, err := strconv.ParseFloat("0."+frac, 64)
		if err != nil {
			return "", fmt.Errorf("offset fraction %q: %w", frac, err)
		}
		minutes = int(f*60 + 0.5)
	}
	return fmt.Sprintf("%s%02d%02d", sign, h, minutes), nil
}

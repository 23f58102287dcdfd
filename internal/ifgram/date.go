// Package ifgram defines the interferogram domain model: acquisition
// dates, date12 pair identifiers, and the baselines derived from them.
package ifgram

import (
	"errors"
	"fmt"
	"time"
)

// ErrFormat reports a malformed date or pair string. Callers match it
// with errors.Is; the wrapped message carries the offending input.
var ErrFormat = errors.New("invalid date12 format")

const dateLayout = "20060102"

// Date is an acquisition date normalized to 8-digit YYYYMMDD. Dates are
// totally ordered by calendar date; the representation is fixed-width
// numeric, so string comparison gives the same order.
type Date string

// NormalizeDate converts a 6-digit YYMMDD or 8-digit YYYYMMDD string
// into a Date. Six-digit dates expand with the legacy century rule:
// a leading '9' means 19xx, anything else 20xx.
func NormalizeDate(s string) (Date, error) {
	switch len(s) {
	case 6:
		if s[0] == '9' {
			s = "19" + s
		} else {
			s = "20" + s
		}
	case 8:
		// already expanded
	default:
		return "", fmt.Errorf("%w: date %q must have 6 or 8 digits", ErrFormat, s)
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q is not a calendar date", ErrFormat, s)
	}
	return Date(s), nil
}

// NormalizeDates converts a list of 6- or 8-digit date strings. The
// first malformed entry aborts the conversion.
func NormalizeDates(in []string) ([]Date, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]Date, 0, len(in))
	for _, s := range in {
		d, err := NormalizeDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Time returns the date at midnight UTC. Dates built by NormalizeDate
// always parse; any other Date value yields the zero time.
func (d Date) Time() time.Time {
	t, _ := time.Parse(dateLayout, string(d))
	return t
}

// YYMMDD returns the legacy 6-digit form of the date.
func (d Date) YYMMDD() string {
	if len(d) == 8 {
		return string(d[2:])
	}
	return string(d)
}

// Before reports whether d falls earlier in the calendar than other.
func (d Date) Before(other Date) bool {
	return d < other
}

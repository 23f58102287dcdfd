package ifgram

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Pair identifies one interferogram by its two acquisition dates
// (the "date12"). Master is always the earlier of the two.
type Pair struct {
	Master Date
	Slave  Date
}

// ParsePair builds a Pair from a date12 string such as
// "20080520_20090101" or "080520-090101". Both separators are accepted
// and the two dates may appear in either order; the result always has
// Master < Slave. Self-pairs are rejected.
func ParsePair(s string) (Pair, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(parts) != 2 {
		return Pair{}, fmt.Errorf("%w: %q is not a date12 pair", ErrFormat, s)
	}
	a, err := NormalizeDate(parts[0])
	if err != nil {
		return Pair{}, err
	}
	b, err := NormalizeDate(parts[1])
	if err != nil {
		return Pair{}, err
	}
	if a == b {
		return Pair{}, fmt.Errorf("%w: %q pairs a date with itself", ErrFormat, s)
	}
	if b.Before(a) {
		a, b = b, a
	}
	return Pair{Master: a, Slave: b}, nil
}

// String returns the canonical master_slave form.
func (p Pair) String() string {
	return string(p.Master) + "_" + string(p.Slave)
}

// TemporalBaselineDays returns the exact calendar-day separation between
// the two acquisitions. time.Time carries the Gregorian rules, so leap
// years need no special casing.
func (p Pair) TemporalBaselineDays() int {
	return int(p.Slave.Time().Sub(p.Master.Time()).Hours() / 24)
}

// Contains reports whether d is one of the pair's endpoints.
func (p Pair) Contains(d Date) bool {
	return p.Master == d || p.Slave == d
}

// less orders pairs by master date, then slave date.
func (p Pair) less(q Pair) bool {
	if p.Master != q.Master {
		return p.Master < q.Master
	}
	return p.Slave < q.Slave
}

// SortPairs orders a pair list by master date, then slave date.
func SortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].less(pairs[j]) })
}

// DatesOf returns the sorted distinct acquisition dates referenced by
// any pair in the list.
func DatesOf(pairs []Pair) []Date {
	seen := make(map[Date]bool, 2*len(pairs))
	for _, p := range pairs {
		seen[p.Master] = true
		seen[p.Slave] = true
	}
	dates := make([]Date, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates
}

// ReadPairList parses a pair-per-line listing, the text form of a
// reference network. Blank lines and '#' comment lines are skipped;
// anything after the date12 token on a line is ignored.
func ReadPairList(r io.Reader) ([]Pair, error) {
	var pairs []Pair
	sc := bufio.NewScanner(r)
	for lineno := 1; sc.Scan(); lineno++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			line = line[:i]
		}
		p, err := ParsePair(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		pairs = append(pairs, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pair list: %w", err)
	}
	return pairs, nil
}

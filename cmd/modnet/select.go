package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
	"github.com/kestrel-insar/ifgram.network/internal/network"
)

// terminalSelector implements network.PairSelector on a line-oriented
// terminal. The user types stack indices or date12 values until an
// empty line, then confirms; declining the confirmation aborts the
// whole modification.
type terminalSelector struct {
	in  io.Reader
	out io.Writer

	tbase     map[ifgram.Pair]int
	dropped   map[ifgram.Pair]bool
	coherence map[ifgram.Pair]float64

	aborted bool
}

var indexToken = regexp.MustCompile(`^[0-9]+(:[0-9]+)?$`)

func (s *terminalSelector) Select(pairs []ifgram.Pair, dates []ifgram.Date, perpBase map[ifgram.Date]float64) ([]ifgram.Pair, bool, error) {
	fmt.Fprintln(s.out, "-------------------------------------------------------------")
	fmt.Fprintln(s.out, "Manually select interferograms to drop")
	fmt.Fprintln(s.out, "1) enter stack indices (3, 0:5) or date12 values (20080101_20080201)")
	fmt.Fprintln(s.out, "2) repeat until done; 'list' reprints the network")
	fmt.Fprintln(s.out, "3) finish with an empty line, then confirm")
	fmt.Fprintln(s.out, "-------------------------------------------------------------")
	s.printNetwork(pairs, dates, perpBase)

	selected := make(map[ifgram.Pair]bool)
	sc := bufio.NewScanner(s.in)
	for {
		fmt.Fprintf(s.out, "drop> ")
		if !sc.Scan() {
			// Input closed before the selection was confirmed.
			if err := sc.Err(); err != nil {
				return nil, false, err
			}
			s.aborted = true
			return nil, false, nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			break
		}
		if line == "list" {
			s.printNetwork(pairs, dates, perpBase)
			continue
		}
		for _, tok := range splitCSV(line) {
			s.addToken(tok, pairs, selected)
		}
	}

	fmt.Fprintf(s.out, "Proceed to drop the %d selected interferograms? [y/N] ", len(selected))
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, false, err
		}
		s.aborted = true
		return nil, false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	if answer != "y" && answer != "yes" {
		s.aborted = true
		return nil, false, nil
	}

	drop := make([]ifgram.Pair, 0, len(selected))
	for p := range selected {
		drop = append(drop, p)
	}
	ifgram.SortPairs(drop)
	return drop, true, nil
}

// addToken resolves one input token to pairs and adds them to the
// selection. Unknown values are reported and skipped.
func (s *terminalSelector) addToken(tok string, pairs []ifgram.Pair, selected map[ifgram.Pair]bool) {
	if indexToken.MatchString(tok) {
		indices := network.ClipIndexList(network.ParseIndexList([]string{tok}), len(pairs))
		if len(indices) == 0 {
			fmt.Fprintf(s.out, "index %s is out of range (stack has %d pairs)\n", tok, len(pairs))
			return
		}
		for _, i := range indices {
			selected[pairs[i]] = true
			fmt.Fprintf(s.out, "select %s\n", pairs[i])
		}
		return
	}

	p, err := ifgram.ParsePair(tok)
	if err != nil {
		fmt.Fprintf(s.out, "cannot read %q as an index or date12\n", tok)
		return
	}
	for _, q := range pairs {
		if q == p {
			selected[p] = true
			fmt.Fprintf(s.out, "select %s\n", p)
			return
		}
	}
	fmt.Fprintf(s.out, "%s is not in the stack\n", p)
}

// printNetwork writes the date axis and the pair table the selection
// works against.
func (s *terminalSelector) printNetwork(pairs []ifgram.Pair, dates []ifgram.Date, perpBase map[ifgram.Date]float64) {
	fmt.Fprintln(s.out, "Acquisition dates (perpendicular baseline, m):")
	for i, d := range dates {
		fmt.Fprintf(s.out, "  %3d  %s  %8.1f\n", i, d, perpBase[d])
	}
	fmt.Fprintln(s.out)
	fmt.Fprintf(s.out, "  %3s  %-17s  %6s  %8s  %6s  %s\n", "IDX", "DATE12", "TBASE", "PBASE", "COH", "STATE")
	for i, p := range pairs {
		state := "kept"
		if s.dropped[p] {
			state = "dropped"
		}
		fmt.Fprintf(s.out, "  %3d  %-17s  %6d  %8.1f  %6s  %s\n",
			i, p, s.tbase[p], perpBase[p.Slave]-perpBase[p.Master], s.formatCoherence(p), state)
	}
}

func (s *terminalSelector) formatCoherence(p ifgram.Pair) string {
	coh, found := s.coherence[p]
	if !found || math.IsNaN(coh) {
		return "-"
	}
	return fmt.Sprintf("%.3f", coh)
}

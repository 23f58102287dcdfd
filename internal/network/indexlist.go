package network

import (
	"log"
	"sort"
	"strconv"
	"strings"
)

// ParseIndexList expands index tokens into a sorted, de-duplicated
// index list. A token is either a bare integer or an inclusive a:b
// range whose bounds may appear in either order. Malformed tokens log
// a warning and are skipped; they never abort the run.
func ParseIndexList(tokens []string) []int {
	seen := make(map[int]bool)
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		parts := strings.Split(tok, ":")
		switch len(parts) {
		case 1:
			i, err := strconv.Atoi(parts[0])
			if err != nil {
				log.Printf("Warning: skipping unreadable index %q", tok)
				continue
			}
			seen[i] = true
		case 2:
			lo, err1 := strconv.Atoi(parts[0])
			hi, err2 := strconv.Atoi(parts[1])
			if err1 != nil || err2 != nil {
				log.Printf("Warning: skipping unreadable index range %q", tok)
				continue
			}
			if lo > hi {
				lo, hi = hi, lo
			}
			for i := lo; i <= hi; i++ {
				seen[i] = true
			}
		default:
			log.Printf("Warning: skipping index token %q with multiple ':'", tok)
		}
	}

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// ClipIndexList drops indices outside [0, n).
func ClipIndexList(indices []int, n int) []int {
	kept := indices[:0]
	for _, i := range indices {
		if i >= 0 && i < n {
			kept = append(kept, i)
		}
	}
	return kept
}

package stackdb

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
	"github.com/kestrel-insar/ifgram.network/internal/network"
)

// Record is one persisted interferogram. Everything except Dropped is
// immutable once the stack is built.
type Record struct {
	Pair             ifgram.Pair
	TemporalBaseline int
	PerpBaseline     float64
	Dropped          bool
}

// AddInterferogram appends a pair to the stack. The temporal baseline
// derives from the pair's dates; the perpendicular baseline is an
// external input. Duplicate pairs are rejected by the schema.
func (db *DB) AddInterferogram(p ifgram.Pair, perpBaseline float64) error {
	_, err := db.Exec(`
		INSERT INTO interferograms (date12, master, slave, temporal_baseline, perp_baseline, dropped)
		VALUES (?, ?, ?, ?, ?, 0)
	`, p.String(), string(p.Master), string(p.Slave), p.TemporalBaselineDays(), perpBaseline)
	if err != nil {
		return fmt.Errorf("failed to insert interferogram %s: %w", p, err)
	}
	return nil
}

// Records returns every interferogram in stack order. The order is the
// insertion order and is stable across calls; the drop rules and index
// exclusion both key off it.
func (db *DB) Records() ([]Record, error) {
	rows, err := db.Query(`
		SELECT date12, temporal_baseline, perp_baseline, dropped
		FROM interferograms
		ORDER BY idx
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query interferograms: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var date12 string
		var rec Record
		if err := rows.Scan(&date12, &rec.TemporalBaseline, &rec.PerpBaseline, &rec.Dropped); err != nil {
			return nil, fmt.Errorf("failed to scan interferogram row: %w", err)
		}
		rec.Pair, err = ifgram.ParsePair(date12)
		if err != nil {
			return nil, fmt.Errorf("stored pair %q is malformed: %w", date12, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read interferograms: %w", err)
	}
	return records, nil
}

// Pairs returns the full pair universe in stack order.
func (db *DB) Pairs() ([]ifgram.Pair, error) {
	records, err := db.Records()
	if err != nil {
		return nil, err
	}
	pairs := make([]ifgram.Pair, len(records))
	for i, rec := range records {
		pairs[i] = rec.Pair
	}
	return pairs, nil
}

// KeptPairs returns the pairs currently not dropped, in stack order.
func (db *DB) KeptPairs() ([]ifgram.Pair, error) {
	records, err := db.Records()
	if err != nil {
		return nil, err
	}
	var pairs []ifgram.Pair
	for _, rec := range records {
		if !rec.Dropped {
			pairs = append(pairs, rec.Pair)
		}
	}
	return pairs, nil
}

// DroppedPairs returns the pairs currently dropped, in stack order.
func (db *DB) DroppedPairs() ([]ifgram.Pair, error) {
	records, err := db.Records()
	if err != nil {
		return nil, err
	}
	var pairs []ifgram.Pair
	for _, rec := range records {
		if rec.Dropped {
			pairs = append(pairs, rec.Pair)
		}
	}
	return pairs, nil
}

// Snapshot assembles the immutable view the filter engine runs on.
func (db *DB) Snapshot() (*network.Snapshot, error) {
	records, err := db.Records()
	if err != nil {
		return nil, err
	}
	snap := &network.Snapshot{
		Pairs:   make([]ifgram.Pair, len(records)),
		TBase:   make(map[ifgram.Pair]int, len(records)),
		PBase:   make(map[ifgram.Pair]float64, len(records)),
		Dropped: make(map[ifgram.Pair]bool, len(records)),
	}
	for i, rec := range records {
		snap.Pairs[i] = rec.Pair
		snap.TBase[rec.Pair] = rec.TemporalBaseline
		snap.PBase[rec.Pair] = rec.PerpBaseline
		snap.Dropped[rec.Pair] = rec.Dropped
	}
	return snap, nil
}

// UpdateDropFlags rewrites the drop flags so that exactly the given
// pairs are dropped. The rewrite is transactional: an unknown pair
// aborts it and leaves the prior flags intact.
func (db *DB) UpdateDropFlags(drop []ifgram.Pair) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin drop-flag update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE interferograms SET dropped = 0`); err != nil {
		return fmt.Errorf("failed to clear drop flags: %w", err)
	}
	stmt, err := tx.Prepare(`UPDATE interferograms SET dropped = 1 WHERE date12 = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare drop-flag update: %w", err)
	}
	defer stmt.Close()

	for _, p := range drop {
		res, err := stmt.Exec(p.String())
		if err != nil {
			return fmt.Errorf("failed to mark %s dropped: %w", p, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to mark %s dropped: %w", p, err)
		}
		if n == 0 {
			return fmt.Errorf("cannot drop %s: not in the stack", p)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit drop-flag update: %w", err)
	}
	return nil
}

// ResetDropFlags restores every pair. It reports whether any flag
// actually changed, so callers can tell a reset from a no-op.
func (db *DB) ResetDropFlags() (bool, error) {
	res, err := db.Exec(`UPDATE interferograms SET dropped = 0 WHERE dropped != 0`)
	if err != nil {
		return false, fmt.Errorf("failed to reset drop flags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to reset drop flags: %w", err)
	}
	return n > 0, nil
}

// SetMeta stores a scene metadata entry, replacing any prior value.
func (db *DB) SetMeta(key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO stack_metadata (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return nil
}

// Meta returns a scene metadata entry, or "" if unset.
func (db *DB) Meta(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM stack_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read metadata %s: %w", key, err)
	}
	return value, nil
}

// SetDimensions records the scene's raster size.
func (db *DB) SetDimensions(width, height int) error {
	if err := db.SetMeta("width", strconv.Itoa(width)); err != nil {
		return err
	}
	return db.SetMeta("height", strconv.Itoa(height))
}

// Dimensions returns the scene's raster size, or zeros if unset.
func (db *DB) Dimensions() (width, height int, err error) {
	w, err := db.Meta("width")
	if err != nil {
		return 0, 0, err
	}
	h, err := db.Meta("height")
	if err != nil {
		return 0, 0, err
	}
	if w == "" || h == "" {
		return 0, 0, nil
	}
	width, err = strconv.Atoi(w)
	if err != nil {
		return 0, 0, fmt.Errorf("metadata width %q is not a number", w)
	}
	height, err = strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("metadata height %q is not a number", h)
	}
	return width, height, nil
}

// Package stackdb persists interferogram stacks. One database file
// holds the pair table with baselines and drop flags, the per-pair
// coherence rasters, scene metadata, and the history of network
// modification runs. The schema is managed by numbered migrations
// embedded in the binary.
package stackdb

import (
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// Open opens an existing stack database for decisioning and write-back.
// The file must exist and carry the interferogram schema; Open never
// creates one.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stack database %s: %w", path, err)
	}
	db, err := open(path)
	if err != nil {
		return nil, err
	}

	var hasPairs bool
	err = db.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='interferograms'
	`).Scan(&hasPairs)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	if !hasPairs {
		db.Close()
		return nil, fmt.Errorf("%s is not an interferogram stack database (run 'migrate up' to initialize)", path)
	}
	return db, nil
}

// Create opens a stack database, creating the file if needed, and
// applies all pending migrations.
func Create(path string) (*DB, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// open connects without validating or initializing the schema. The
// migrate subcommand uses it directly so migrations fully own schema
// changes.
func open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stack database %s: %w", path, err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure %s: %w", path, err)
	}
	return &DB{db}, nil
}

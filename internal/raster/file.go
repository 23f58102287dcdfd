package raster

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// schema.sql defines the single-table layout of standalone raster files.
//
//go:embed schema.sql
var schemaSQL string

// WriteFile stores a named grid in a raster database file, creating the
// file if needed and replacing any raster of the same name.
func WriteFile(path, name string, g *Grid) error {
	blob, err := Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to serialize raster %q: %w", name, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open raster file %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize raster file %s: %w", path, err)
	}
	_, err = db.Exec(`INSERT OR REPLACE INTO rasters (name, width, height, data) VALUES (?, ?, ?, ?)`,
		name, g.Width, g.Height, blob)
	if err != nil {
		return fmt.Errorf("failed to write raster %q to %s: %w", name, path, err)
	}
	return nil
}

// ReadFile loads a named grid from a raster database file. The file
// must already exist; opening never creates one.
func ReadFile(path, name string) (*Grid, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("raster file %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster file %s: %w", path, err)
	}
	defer db.Close()

	var width, height int
	var blob []byte
	err = db.QueryRow(`SELECT width, height, data FROM rasters WHERE name = ?`, name).
		Scan(&width, &height, &blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("raster file %s has no raster named %q", path, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read raster %q from %s: %w", name, path, err)
	}

	g, err := Unmarshal(blob)
	if err != nil {
		return nil, fmt.Errorf("raster %q in %s: %w", name, path, err)
	}
	if g.Width != width || g.Height != height {
		return nil, fmt.Errorf("raster %q in %s: blob is %dx%d but row says %dx%d",
			name, path, g.Width, g.Height, width, height)
	}
	return g, nil
}

// ReadMask loads the conventional "mask" raster from a mask file.
// Nonzero samples mark pixels included in spatial statistics.
func ReadMask(path string) (*Grid, error) {
	return ReadFile(path, "mask")
}

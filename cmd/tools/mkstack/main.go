// Command mkstack builds an interferogram stack database from a pair
// manifest, one interferogram per line:
//
//	DATE12  PERP_BASELINE  [COHERENCE_RASTER]
//
// The raster column names a standalone raster file holding a
// "coherence" grid, resolved relative to the manifest. Scene
// dimensions come from -width/-height, or from the first raster.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
	"github.com/kestrel-insar/ifgram.network/internal/raster"
	"github.com/kestrel-insar/ifgram.network/internal/stackdb"
)

type manifestEntry struct {
	pair       ifgram.Pair
	perpBase   float64
	rasterFile string
}

func main() {
	stackFile := flag.String("file", "stack.db", "stack database to create")
	manifestFile := flag.String("manifest", "", "pair manifest file")
	width := flag.Int("width", 0, "scene width when the manifest carries no rasters")
	height := flag.Int("height", 0, "scene height when the manifest carries no rasters")
	flag.Parse()

	if *manifestFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -manifest is required")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(*stackFile); err == nil {
		log.Fatalf("stack database %s already exists", *stackFile)
	}

	f, err := os.Open(*manifestFile)
	if err != nil {
		log.Fatalf("Failed to open manifest: %v", err)
	}
	entries, err := readManifest(f)
	f.Close()
	if err != nil {
		log.Fatalf("Manifest %s: %v", *manifestFile, err)
	}
	if len(entries) == 0 {
		log.Fatalf("manifest %s lists no interferograms", *manifestFile)
	}

	db, err := stackdb.Create(*stackFile)
	if err != nil {
		log.Fatalf("Failed to create stack database: %v", err)
	}
	defer db.Close()

	if err := build(db, entries, filepath.Dir(*manifestFile), *width, *height); err != nil {
		log.Fatalf("Failed to build stack: %v", err)
	}
	log.Printf("✓ Created: %s (%d interferograms)", *stackFile, len(entries))
}

// readManifest parses the pair listing. Blank lines and '#' comment
// lines are skipped.
func readManifest(r io.Reader) ([]manifestEntry, error) {
	var entries []manifestEntry
	sc := bufio.NewScanner(r)
	for lineno := 1; sc.Scan(); lineno++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want DATE12 and a perpendicular baseline, got %q", lineno, line)
		}
		p, err := ifgram.ParsePair(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		pbase, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad perpendicular baseline %q", lineno, fields[1])
		}
		e := manifestEntry{pair: p, perpBase: pbase}
		if len(fields) > 2 {
			e.rasterFile = fields[2]
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return entries, nil
}

// build loads the entries into the stack. Raster paths resolve relative
// to dir. Scene dimensions come from width and height when both are
// set, otherwise from the first raster; a stack without rasters keeps
// zero dimensions.
func build(db *stackdb.DB, entries []manifestEntry, dir string, width, height int) error {
	for _, e := range entries {
		if err := db.AddInterferogram(e.pair, e.perpBase); err != nil {
			return err
		}
		if e.rasterFile == "" {
			continue
		}
		path := e.rasterFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		g, err := raster.ReadFile(path, "coherence")
		if err != nil {
			return err
		}
		if err := db.PutCoherenceRaster(e.pair, g); err != nil {
			return err
		}
		if width == 0 || height == 0 {
			width, height = g.Width, g.Height
		}
	}
	if width > 0 && height > 0 {
		return db.SetDimensions(width, height)
	}
	return nil
}

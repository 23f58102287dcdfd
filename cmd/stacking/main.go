// stacking writes the temporal average of a stack's coherence rasters
// as a standalone raster product, the per-pixel summary the rest of the
// processing chain reads as averageSpatialCoherence.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kestrel-insar/ifgram.network/internal/raster"
	"github.com/kestrel-insar/ifgram.network/internal/stackdb"
	"github.com/kestrel-insar/ifgram.network/internal/version"
)

var (
	stackFile   = flag.String("file", "", "Interferogram stack database file")
	outFile     = flag.String("o", "", "Output raster file (default averageSpatialCoherence.db next to the stack)")
	includeAll  = flag.Bool("all", false, "Average every pair, including dropped ones")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("stacking " + version.String())
		return
	}
	if *stackFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		flag.Usage()
		os.Exit(1)
	}

	db, err := stackdb.Open(*stackFile)
	if err != nil {
		log.Fatalf("Failed to open stack database: %v", err)
	}
	defer db.Close()

	out := *outFile
	if out == "" {
		out = filepath.Join(filepath.Dir(*stackFile), "averageSpatialCoherence.db")
	}
	if err := stack(db, out, *includeAll); err != nil {
		log.Fatalf("Stacking failed: %v", err)
	}
}

// stack averages the coherence rasters and writes the product.
func stack(db *stackdb.DB, out string, includeAll bool) error {
	avg, err := db.TemporalAverageCoherence(!includeAll)
	if err != nil {
		return fmt.Errorf("failed to average coherence: %w", err)
	}
	if err := raster.WriteFile(out, "averageSpatialCoherence", avg); err != nil {
		return err
	}
	log.Printf("wrote average spatial coherence product: %s", out)
	return nil
}

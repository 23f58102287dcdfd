// modnet decides which interferograms of a stack stay in the network.
// Drop rules come from command line flags and an optional template
// file; the union of their selections is written back to the stack
// database as drop flags, never deleting data.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/kestrel-insar/ifgram.network/internal/config"
	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
	"github.com/kestrel-insar/ifgram.network/internal/network"
	"github.com/kestrel-insar/ifgram.network/internal/raster"
	"github.com/kestrel-insar/ifgram.network/internal/stackdb"
	"github.com/kestrel-insar/ifgram.network/internal/version"
)

var (
	stackFile    = flag.String("file", "", "Interferogram stack database file")
	templateFile = flag.String("template", "", "Template file with network.* options")
	doReset      = flag.Bool("reset", false, "Restore all interferograms (undo every drop)")
	noAux        = flag.Bool("noaux", false, "Do not update the average spatial coherence product")
	manual       = flag.Bool("manual", false, "Manually select interferograms to drop")

	cohBased     = flag.Bool("coherence-based", false, "Enable coherence-based selection")
	noMST        = flag.Bool("no-mst", false, "Do not protect the minimum spanning tree of the date graph")
	minCoherence = flag.Float64("min-coherence", 0.7, "Minimum spatial average coherence to keep a pair")
	maskFile     = flag.String("mask", "", "Mask file applied when averaging coherence")
	aoiYX        = flag.String("aoi", "", "Area of interest for coherence averaging, y0:y1,x0:x1")
	aoiLalo      = flag.String("aoi-geo", "", "Area of interest as lat0:lat1,lon0:lon1 (needs a geometry lookup)")

	maxTBase = flag.Float64("max-tbase", 0, "Maximum temporal baseline in days, 0 disables")
	maxPBase = flag.Float64("max-pbase", 0, "Maximum perpendicular baseline in meters, 0 disables")

	referenceFile = flag.String("reference", "", "Keep only pairs kept by this reference (pair list or stack db)")
	excludeIndex  = flag.String("exclude-ifg-index", "", "Drop pairs by stack index, comma separated, a:b ranges allowed")
	excludeDate   = flag.String("exclude-date", "", "Drop pairs touching these dates, comma separated")
	startDate     = flag.String("start-date", "", "Drop pairs with an endpoint before this date")
	endDate       = flag.String("end-date", "", "Drop pairs with an endpoint after this date")

	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Println("modnet " + version.String())
		return
	}

	if flag.NArg() > 0 {
		runCommand(flag.Arg(0), flag.Args()[1:])
		return
	}

	if *stackFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		fmt.Fprintln(os.Stderr)
		printUsage()
		os.Exit(1)
	}

	opts, err := optionsFromFlags()
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	reset := *doReset
	if !reset && !*manual && !opts.Enabled() {
		if *templateFile == "" {
			fmt.Fprintln(os.Stderr, "Error: no option found to modify the network")
			fmt.Fprintln(os.Stderr, "To manually modify the network, use -manual")
			os.Exit(1)
		}
		// A template with every drop rule disabled restores the full network.
		log.Printf("No drop option enabled in %s; keeping all interferograms", *templateFile)
		reset = true
	}

	db, err := stackdb.Open(*stackFile)
	if err != nil {
		log.Fatalf("Failed to open stack database: %v", err)
	}
	defer db.Close()

	if reset {
		runReset(db)
		return
	}
	runModify(db, opts)
}

// runCommand dispatches the non-flag subcommands.
func runCommand(command string, args []string) {
	switch command {
	case "migrate":
		if *stackFile == "" {
			log.Fatal("Error: -file is required for migrate")
		}
		stackdb.RunMigrateCommand(args, *stackFile)
	case "runs":
		if *stackFile == "" {
			log.Fatal("Error: -file is required for runs")
		}
		listRuns()
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// optionsFromFlags builds the run options from the flag values, then
// overlays the template file when one was given.
func optionsFromFlags() (*config.Options, error) {
	opts := &config.Options{MinCoherence: minCoherence}
	if *cohBased {
		b := true
		opts.CoherenceBased = &b
	}
	if *noMST {
		b := false
		opts.KeepMinSpanTree = &b
	}
	if *maskFile != "" {
		opts.MaskFile = maskFile
	}
	if *aoiYX != "" {
		box, err := raster.ParseBox(*aoiYX)
		if err != nil {
			return nil, err
		}
		opts.AOIPix = &box
	}
	if *aoiLalo != "" {
		geo, err := raster.ParseGeoBox(*aoiLalo)
		if err != nil {
			return nil, err
		}
		opts.AOIGeo = &geo
	}
	if *maxTBase > 0 {
		opts.TempBaseMax = maxTBase
	}
	if *maxPBase > 0 {
		opts.PerpBaseMax = maxPBase
	}
	if *referenceFile != "" {
		opts.ReferenceFile = referenceFile
	}
	if *excludeIndex != "" {
		opts.ExcludeIndex = splitCSV(*excludeIndex)
	}
	if *excludeDate != "" {
		dates, err := ifgram.NormalizeDates(splitCSV(*excludeDate))
		if err != nil {
			return nil, err
		}
		opts.ExcludeDate = dates
	}
	if *startDate != "" {
		d, err := ifgram.NormalizeDate(*startDate)
		if err != nil {
			return nil, err
		}
		opts.StartDate = d
	}
	if *endDate != "" {
		d, err := ifgram.NormalizeDate(*endDate)
		if err != nil {
			return nil, err
		}
		opts.EndDate = d
	}

	if *templateFile != "" {
		tpl, err := config.ReadTemplate(*templateFile)
		if err != nil {
			return nil, err
		}
		log.Printf("read options from template file: %s", filepath.Base(*templateFile))
		if err := opts.ApplyTemplate(tpl); err != nil {
			return nil, err
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// runReset restores every interferogram and records the run.
func runReset(db *stackdb.DB) {
	log.Printf("restore all interferograms in the stack")
	dropped, err := db.DroppedPairs()
	if err != nil {
		log.Fatalf("Failed to load the stack: %v", err)
	}
	changed, err := db.ResetDropFlags()
	if err != nil {
		log.Fatalf("Failed to reset drop flags: %v", err)
	}
	if !changed {
		log.Printf("all interferograms are already kept; nothing to reset")
		return
	}

	pairs, err := db.Pairs()
	if err != nil {
		log.Fatalf("Failed to load the stack: %v", err)
	}
	run := &stackdb.ModificationRun{
		CriteriaJSON: "{}",
		KeptCount:    len(pairs),
		Status:       stackdb.RunReset,
	}
	if err := db.RecordRun(run); err != nil {
		log.Printf("Warning: failed to record the run: %v", err)
	}
	log.Printf("restored %d dropped interferograms, %d kept (run %s)", len(dropped), len(pairs), run.RunID)

	if *noAux {
		log.Printf("skip updating the average spatial coherence product")
		return
	}
	refreshAverageCoherence(db)
}

// runModify evaluates the drop rules against the stack and writes the
// resulting drop flags back.
func runModify(db *stackdb.DB, opts *config.Options) {
	snap, err := db.Snapshot()
	if err != nil {
		log.Fatalf("Failed to load the stack: %v", err)
	}
	log.Printf("number of interferograms: %d", len(snap.Pairs))

	criteria, sel, err := buildCriteria(db, snap, opts)
	if err != nil {
		log.Fatalf("Failed to assemble drop criteria: %v", err)
	}

	drop, ok, err := network.ComputeDropSet(snap, criteria)
	if err != nil {
		log.Fatalf("Failed to compute the drop set: %v", err)
	}

	run := &stackdb.ModificationRun{CriteriaJSON: criteriaJSON(opts)}
	if !ok {
		// The network stays as stored: either the rules matched the
		// current drop flags or the manual selection was aborted.
		run.Status = stackdb.RunNoChange
		if sel != nil && sel.aborted {
			run.Status = stackdb.RunAborted
		}
		stored := 0
		for _, dropped := range snap.Dropped {
			if dropped {
				stored++
			}
		}
		run.DroppedCount = stored
		run.KeptCount = len(snap.Pairs) - stored
		if err := db.RecordRun(run); err != nil {
			log.Printf("Warning: failed to record the run: %v", err)
		}
		return
	}

	log.Printf("Dropping %d of %d interferograms:", len(drop), len(snap.Pairs))
	for _, p := range drop {
		log.Printf("  %s", p)
	}
	if err := db.UpdateDropFlags(drop); err != nil {
		log.Fatalf("Failed to update drop flags: %v", err)
	}

	run.Status = stackdb.RunApplied
	run.DroppedCount = len(drop)
	run.KeptCount = len(snap.Pairs) - len(drop)
	if err := db.RecordRun(run); err != nil {
		log.Printf("Warning: failed to record the run: %v", err)
	}
	log.Printf("network updated: %d kept, %d dropped (run %s)", run.KeptCount, run.DroppedCount, run.RunID)

	if *noAux {
		log.Printf("skip updating the average spatial coherence product")
		return
	}
	refreshAverageCoherence(db)
}

// buildCriteria translates the option values into the engine's rule
// set, loading whatever stack data the enabled rules need. The returned
// selector is non-nil when -manual is on.
func buildCriteria(db *stackdb.DB, snap *network.Snapshot, opts *config.Options) (network.Criteria, *terminalSelector, error) {
	var c network.Criteria

	if opts.ReferenceFile != nil {
		keep, err := stackdb.KeepListFromReference(*opts.ReferenceFile)
		if err != nil {
			return c, nil, fmt.Errorf("reference network: %w", err)
		}
		log.Printf("use reference pairs from file: %s (%d kept)", *opts.ReferenceFile, len(keep))
		c.Reference = &network.ReferenceRule{Keep: keep}
	}

	var coherence []float64
	if opts.CoherenceBased != nil && *opts.CoherenceBased {
		log.Printf("use coherence-based network modification")
		var err error
		coherence, err = averageCoherence(db, opts)
		if err != nil {
			return c, nil, err
		}
		minCoh := 0.7
		if opts.MinCoherence != nil {
			minCoh = *opts.MinCoherence
		}
		keepMST := opts.KeepMinSpanTree == nil || *opts.KeepMinSpanTree
		if keepMST {
			log.Printf("keep the minimum spanning tree weighted by inverse average coherence")
		}
		log.Printf("drop other pairs with average coherence < %g", minCoh)
		c.Coherence = &network.CoherenceRule{
			MinCoherence:    minCoh,
			KeepMinSpanTree: keepMST,
			Coherence:       coherence,
		}
	}

	c.TempBaseMax = opts.TempBaseMax
	if opts.TempBaseMax != nil {
		log.Printf("drop pairs with temporal baseline > %g days", *opts.TempBaseMax)
	}
	c.PerpBaseMax = opts.PerpBaseMax
	if opts.PerpBaseMax != nil {
		log.Printf("drop pairs with perpendicular baseline > %g meters", *opts.PerpBaseMax)
	}

	if len(opts.ExcludeIndex) > 0 {
		indices := network.ClipIndexList(network.ParseIndexList(opts.ExcludeIndex), len(snap.Pairs))
		log.Printf("drop pairs by stack index: %v", indices)
		c.ExcludeIndex = indices
	}
	if len(opts.ExcludeDate) > 0 {
		log.Printf("drop pairs including dates: %v", opts.ExcludeDate)
		c.ExcludeDates = opts.ExcludeDate
	}
	if opts.StartDate != "" {
		log.Printf("drop pairs with dates earlier than %s", opts.StartDate)
		c.StartDate = opts.StartDate
	}
	if opts.EndDate != "" {
		log.Printf("drop pairs with dates later than %s", opts.EndDate)
		c.EndDate = opts.EndDate
	}

	var sel *terminalSelector
	if *manual {
		sel = &terminalSelector{
			in:        os.Stdin,
			out:       os.Stdout,
			tbase:     snap.TBase,
			dropped:   snap.Dropped,
			coherence: coherenceByPair(snap.Pairs, coherence),
		}
		c.Selector = sel
	}
	return c, sel, nil
}

// averageCoherence loads the spatial average coherence series for the
// coherence rule, honoring the mask and AOI options.
func averageCoherence(db *stackdb.DB, opts *config.Options) ([]float64, error) {
	var mask *raster.Grid
	if opts.MaskFile != nil {
		if _, err := os.Stat(*opts.MaskFile); err != nil {
			log.Printf("Warning: mask file %s not found; averaging without a mask", *opts.MaskFile)
		} else {
			m, err := raster.ReadMask(*opts.MaskFile)
			if err != nil {
				return nil, fmt.Errorf("mask file: %w", err)
			}
			log.Printf("mask coherence pixels with file: %s", *opts.MaskFile)
			mask = m
		}
	}

	var box *raster.Box
	if opts.AOIGeo != nil {
		// Turning a lat/lon box into pixels needs a geometry lookup for
		// the stack; without one the option cannot apply.
		log.Printf("Warning: no geometry lookup for the lat/lon AOI; skipping it")
	}
	if opts.AOIPix != nil {
		log.Printf("average coherence within AOI %s", opts.AOIPix)
		box = opts.AOIPix
	}
	return db.SpatialAverageCoherence(mask, box)
}

// coherenceByPair pairs up the stack-ordered coherence series for
// display. Returns nil when no series was computed.
func coherenceByPair(pairs []ifgram.Pair, coherence []float64) map[ifgram.Pair]float64 {
	if len(coherence) != len(pairs) {
		return nil
	}
	byPair := make(map[ifgram.Pair]float64, len(pairs))
	for i, p := range pairs {
		byPair[p] = coherence[i]
	}
	return byPair
}

// refreshAverageCoherence recomputes the averageSpatialCoherence
// product over the kept pairs and writes it next to the stack. Stacks
// without coherence rasters skip the product with a warning.
func refreshAverageCoherence(db *stackdb.DB) {
	avg, err := db.TemporalAverageCoherence(true)
	if err != nil {
		log.Printf("Warning: average spatial coherence product not updated: %v", err)
		return
	}
	outFile := filepath.Join(filepath.Dir(*stackFile), "averageSpatialCoherence.db")
	if err := raster.WriteFile(outFile, "averageSpatialCoherence", avg); err != nil {
		log.Printf("Warning: failed to write %s: %v", outFile, err)
		return
	}
	log.Printf("updated average spatial coherence product: %s", outFile)
}

func criteriaJSON(opts *config.Options) string {
	data, err := json.Marshal(opts)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func listRuns() {
	db, err := stackdb.Open(*stackFile)
	if err != nil {
		log.Fatalf("Failed to open stack database: %v", err)
	}
	defer db.Close()

	runs, err := db.Runs(20)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No modification runs recorded.")
		return
	}
	fmt.Printf("%-36s  %-20s  %-9s  %7s  %7s\n", "RUN", "STARTED (UTC)", "STATUS", "DROPPED", "KEPT")
	for _, run := range runs {
		fmt.Printf("%-36s  %-20s  %-9s  %7d  %7d\n",
			run.RunID, run.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			run.Status, run.DroppedCount, run.KeptCount)
	}
}

// splitCSV breaks a comma or whitespace separated flag value into its
// tokens.
func splitCSV(s string) []string {
	return strings.Fields(strings.ReplaceAll(s, ",", " "))
}

func printUsage() {
	fmt.Println(`modnet - modify the interferogram network of a stack database

Usage: modnet -file <stack.db> [options]
       modnet -file <stack.db> <command> [args]

Every enabled option contributes pairs to one drop set; the union is
written back as drop flags. Interferograms are never deleted, so a
dropped pair can always be restored with -reset.

Commands:
  migrate <up|down|status|version|force>   Manage the stack database schema
  runs                                     List recent modification runs
  help                                     Show this help message

Selection options:
  -template <file>           Read network.* options from a template file
  -coherence-based           Drop pairs with low spatial average coherence
  -min-coherence <v>         Coherence threshold (default 0.7)
  -no-mst                    Do not protect the minimum spanning tree
  -mask <file>               Mask file for coherence averaging
  -aoi <y0:y1,x0:x1>         Pixel area of interest for coherence averaging
  -aoi-geo <la0:la1,lo0:lo1> Geographic area of interest (needs a lookup)
  -max-tbase <days>          Drop pairs with longer temporal baselines
  -max-pbase <meters>        Drop pairs with longer perpendicular baselines
  -reference <file>          Keep only pairs kept by the reference network
  -exclude-ifg-index <list>  Drop pairs by stack index (0-based, a:b ranges)
  -exclude-date <list>       Drop pairs touching the given dates
  -start-date <date>         Drop pairs starting before the date
  -end-date <date>           Drop pairs ending after the date
  -manual                    Pick pairs to drop interactively

Other options:
  -reset                     Restore all interferograms
  -noaux                     Skip the average spatial coherence product
  -version                   Print version and exit

Examples:
  modnet -file inputs/stack.db -template smallbaseline.template
  modnet -file inputs/stack.db -coherence-based -mask mask.db
  modnet -file inputs/stack.db -max-tbase 48 -exclude-date 20080520
  modnet -file inputs/stack.db -reset
  modnet -file inputs/stack.db migrate up`)
}

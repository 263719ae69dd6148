// orthoscan checks whether the genes of InParanoid ortholog groups sit
// together on their genomes' scaffolds.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/phobologic/orthoscan/internal/annotation"
	"github.com/phobologic/orthoscan/internal/classify"
	"github.com/phobologic/orthoscan/internal/contig"
	"github.com/phobologic/orthoscan/internal/exclude"
	"github.com/phobologic/orthoscan/internal/index"
	"github.com/phobologic/orthoscan/internal/mapping"
	"github.com/phobologic/orthoscan/internal/model"
	"github.com/phobologic/orthoscan/internal/parse"
	"github.com/phobologic/orthoscan/internal/render"
	"github.com/phobologic/orthoscan/internal/store"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "parse":
			return runParse(args[1:], stdout, stderr)
		case "summarize":
			return runSummarize(args[1:], stdout, stderr)
		case "contiguity":
			args = args[1:]
		}
	}
	return runContiguity(args, stdout, stderr)
}

func runContiguity(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("orthoscan", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		mapA, mapB  string
		gffA, gffB  string
		featureType string
		idPrefix    string
		backend     string
		dbPath      string
		format      string
		excludeSpec string
		maxGroups   int
		workers     int
		quiet       bool
		verbose     bool
		showVersion bool
	)

	fs.StringVar(&mapA, "map-a", "", "JSON name mapping for side a (report label -> original header)")
	fs.StringVar(&mapB, "map-b", "", "JSON name mapping for side b")
	fs.StringVar(&gffA, "gff-a", "", "GFF3 annotation for side a")
	fs.StringVar(&gffB, "gff-b", "", "GFF3 annotation for side b")
	fs.StringVar(&featureType, "feature", annotation.DefaultFeatureType, "GFF feature type that marks a transcript")
	fs.StringVar(&idPrefix, "id-prefix", "", "prefix joining mapped names to annotation IDs (e.g. transcript:)")
	fs.StringVar(&backend, "backend", "memory", "transcript index backend: memory or sqlite")
	fs.StringVar(&dbPath, "db", "", "SQLite database path for -backend sqlite (default in-memory)")
	fs.StringVar(&format, "format", "text", "output format: "+strings.Join(render.Formats, ", "))
	fs.StringVar(&excludeSpec, "exclude-scaffolds", "", "comma-separated scaffold patterns to hide, or @file")
	fs.IntVar(&maxGroups, "n", 0, "analyze at most this many groups")
	fs.IntVar(&workers, "j", runtime.GOMAXPROCS(0), "number of groups analyzed concurrently")
	fs.BoolVar(&quiet, "q", false, "suppress warnings")
	fs.BoolVar(&verbose, "v", false, "print progress to stderr")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: orthoscan [contiguity] [flags] REPORT
       orthoscan parse [flags] REPORT
       orthoscan summarize [flags] INPUT

REPORT is an InParanoid human-readable results file or the JSON written by
'orthoscan parse'; "-" reads standard input.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "orthoscan %s\n", version)
		return nil
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("expected one report argument, got %d", fs.NArg())
	}
	for name, v := range map[string]string{"-map-a": mapA, "-map-b": mapB, "-gff-a": gffA, "-gff-b": gffB} {
		if v == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if !render.Valid(format) {
		return fmt.Errorf("unsupported format %q", format)
	}
	if backend != "memory" && backend != "sqlite" {
		return fmt.Errorf("unsupported backend %q", backend)
	}
	if dbPath != "" && backend != "sqlite" {
		return fmt.Errorf("-db requires -backend sqlite")
	}
	if workers < 1 {
		workers = 1
	}
	log := logger{w: stderr, quiet: quiet, verbose: verbose}

	matcher, err := exclude.Parse(excludeSpec)
	if err != nil {
		return err
	}

	reportPath := fs.Arg(0)
	res, err := loadGroups(reportPath)
	if err != nil {
		return err
	}
	log.Infof("%d groups read from %s", len(res.Groups), reportPath)

	names := mapping.New(idPrefix)
	annotations := map[model.Side]string{model.SideA: gffA, model.SideB: gffB}
	for side, path := range map[model.Side]string{model.SideA: mapA, model.SideB: mapB} {
		if err := names.ReadFile(side, path); err != nil {
			return fmt.Errorf("reading name mapping: %w", err)
		}
	}

	indexes := make(map[model.Side]contig.Index, len(model.Sides))
	built := make(map[model.Side]*index.Index, len(model.Sides))
	for _, side := range model.Sides {
		allow, empty := names.Names(side)
		if len(empty) > 0 {
			log.Warnf("side %s: %d labels map to an empty header and cannot be resolved: %s",
				side, len(empty), strings.Join(empty, ", "))
		}
		idx, err := buildIndex(side, annotations[side], featureType, allow)
		if err != nil {
			return err
		}
		if missing := len(allow) - idx.Len(); missing > 0 {
			log.Warnf("side %s: %d of %d mapped transcripts have no %s feature in %s",
				side, missing, len(allow), featureType, annotations[side])
		}
		log.Infof("side %s: indexed %d transcripts on %d scaffold strands", side, idx.Len(), len(idx.Keys()))
		built[side] = idx
		indexes[side] = idx
	}

	if backend == "sqlite" {
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		for _, side := range model.Sides {
			if err := st.Load(side, built[side].Records()); err != nil {
				return err
			}
			indexes[side] = st.Side(side)
		}
	}

	positions := classify.Select(res.Groups, maxGroups)
	log.Infof("analyzing %d of %d groups (skipping 1:1)", len(positions), len(res.Groups))

	reports, err := analyzeGroupsConcurrent(res.Groups, positions, names, indexes, workers)
	if err != nil {
		return err
	}

	rep := &model.ContiguityReport{
		Report: filepath.Base(reportPath),
		Groups: matcher.Filter(reports),
	}
	return render.Contiguity(stdout, format, rep)
}

func buildIndex(side model.Side, path, featureType string, allow map[string]struct{}) (*index.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading annotation: %w", err)
	}
	defer f.Close()

	idx, err := index.Build(side, bufio.NewReader(f), index.Options{FeatureType: featureType, Allow: allow})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

// loadGroups reads either a raw InParanoid report or previously parsed JSON,
// chosen by the first non-blank byte.
func loadGroups(path string) (*model.ParseResult, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var res model.ParseResult
		if err := json.Unmarshal(trimmed, &res); err != nil {
			return nil, fmt.Errorf("decoding parsed groups: %w", err)
		}
		for i := range res.Groups {
			if _, err := classify.Of(&res.Groups[i]); err != nil {
				return nil, fmt.Errorf("group %d: %w", i+1, err)
			}
		}
		return &res, nil
	}

	res, err := parse.Report(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return res, nil
}

// analyzeGroupsConcurrent runs the contiguity analysis for the groups at
// positions on a worker pool. Reports come back in report order; on failure
// the error of the earliest failing group is returned.
func analyzeGroupsConcurrent(
	groups []model.OrthologGroup,
	positions []int,
	res contig.Resolver,
	indexes map[model.Side]contig.Index,
	numWorkers int,
) ([]model.GroupReport, error) {
	type result struct {
		slot   int
		report model.GroupReport
		err    error
	}

	if numWorkers > len(positions) {
		numWorkers = len(positions)
	}

	work := make(chan int, len(positions))
	results := make(chan result, len(positions))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slot := range work {
				pos := positions[slot]
				rep, err := contig.Group(pos, &groups[pos], res, indexes)
				results <- result{slot: slot, report: rep, err: err}
			}
		}()
	}

	for i := range positions {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	reports := make([]model.GroupReport, len(positions))
	errs := make([]error, len(positions))
	for r := range results {
		reports[r.slot] = r.report
		errs[r.slot] = r.err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return reports, nil
}

// logger writes warnings and progress lines to stderr.
type logger struct {
	w       io.Writer
	quiet   bool
	verbose bool
}

func (l logger) Warnf(format string, a ...any) {
	if l.quiet {
		return
	}
	_, _ = fmt.Fprintf(l.w, "Warning: "+format+"\n", a...)
}

func (l logger) Infof(format string, a ...any) {
	if !l.verbose {
		return
	}
	_, _ = fmt.Fprintf(l.w, format+"\n", a...)
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-map-a": true, "--map-a": true,
	"-map-b": true, "--map-b": true,
	"-gff-a": true, "--gff-a": true,
	"-gff-b": true, "--gff-b": true,
	"-feature": true, "--feature": true,
	"-id-prefix": true, "--id-prefix": true,
	"-backend": true, "--backend": true,
	"-db": true, "--db": true,
	"-format": true, "--format": true,
	"-exclude-scaffolds": true, "--exclude-scaffolds": true,
	"-n": true, "--n": true,
	"-j": true, "--j": true,
	"-o": true, "--o": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg). A lone "-"
// is positional (standard input).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 1 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phobologic/orthoscan/internal/classify"
	"github.com/phobologic/orthoscan/internal/model"
	"github.com/phobologic/orthoscan/internal/render"
)

// runParse implements `orthoscan parse`, which converts an InParanoid report
// into JSON for later runs.
func runParse(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("orthoscan parse", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var outPath string
	var pretty bool
	fs.StringVar(&outPath, "o", "", "write JSON to this file instead of stdout")
	fs.BoolVar(&pretty, "pretty", false, "indent the JSON output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: orthoscan parse [flags] REPORT

Parse an InParanoid human-readable report into {"groups": [...]} JSON. Each
group holds the a and b member lists as [label, confidence] pairs.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one report argument, got %d", fs.NArg())
	}

	res, err := loadGroups(fs.Arg(0))
	if err != nil {
		return err
	}

	if outPath == "" {
		return writeGroups(stdout, res, pretty)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := writeGroups(f, res, pretty); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeGroups(w io.Writer, res *model.ParseResult, pretty bool) error {
	if pretty {
		return render.JSON(w, res)
	}
	return json.NewEncoder(w).Encode(res)
}

// runSummarize implements `orthoscan summarize`, which counts groups by
// cardinality.
func runSummarize(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("orthoscan summarize", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var format string
	fs.StringVar(&format, "format", "text", "output format: "+strings.Join(render.Formats, ", "))

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: orthoscan summarize [flags] INPUT

Count the groups of a report (raw or parsed JSON) by cardinality:
1_to_1, 1_to_n, n_to_1 and n_to_n.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one input argument, got %d", fs.NArg())
	}
	if !render.Valid(format) {
		return fmt.Errorf("unsupported format %q", format)
	}

	res, err := loadGroups(fs.Arg(0))
	if err != nil {
		return err
	}
	counts, err := classify.Summarize(res.Groups)
	if err != nil {
		return err
	}
	return render.Counts(stdout, format, counts)
}

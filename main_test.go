package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/phobologic/orthoscan/internal/model"
)

func writeTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

var separator = strings.Repeat("_", 83)

func sampleReport() string {
	return strings.Join([]string{
		"InParanoid version 4.1",
		"",
		separator,
		"Group of orthologs #1. Best score 1210 bits",
		"Score difference with first non-orthologous sequence - ce:1210   hc:1155",
		"ce_p1\t100.00%\thc_p1\t100.00%",
		"ce_p2\t87.5%\t\t",
		"Bootstrap support for ce_p1: 100%",
		"Bootstrap support for hc_p1: 100%",
		separator,
		"Group of orthologs #2. Best score 600 bits",
		"Score difference with first non-orthologous sequence - ce:600   hc:600",
		"ce_p4\t100.00%\thc_p3\t100.00%",
		"Bootstrap support for ce_p4: 100%",
		"Bootstrap support for hc_p3: 100%",
		separator,
		"Group of orthologs #3. Best score 400 bits",
		"Score difference with first non-orthologous sequence - ce:400   hc:380",
		"ce_p4\t100.00%\thc_p2\t100.00%",
		"\t\thc_p3\t55.0%",
		"Bootstrap support for ce_p4: 91%",
		"Bootstrap support for hc_p2: 88%",
		"",
	}, "\n")
}

const gffA = `##gff-version 3
I	WormBase	gene	100	200	.	+	.	ID=gene:g1
I	WormBase	mRNA	100	200	.	+	.	ID=transcript:t1;Parent=gene:g1
I	WormBase	mRNA	300	400	.	+	.	ID=transcript:t2
I	WormBase	mRNA	250	260	.	+	.	ID=transcript:t3
II	WormBase	mRNA	500	600	.	+	.	ID=transcript:t4
`

const gffB = `##gff-version 3
scf1	maker	mRNA	10	50	.	-	.	ID=transcript:h1
scf1	maker	mRNA	60	90	.	-	.	ID=transcript:h2
scf2	maker	mRNA	5	20	.	+	.	ID=transcript:h3
`

// createSampleRun writes a report with its name mappings and annotations and
// returns the flags that point at them, followed by the report path.
func createSampleRun(t *testing.T) (dir string, args []string) {
	t.Helper()
	dir = t.TempDir()
	report := writeTestFile(t, dir, "table.ce-hc", sampleReport())
	args = []string{
		"-map-a", writeTestFile(t, dir, "ce.json", `{"ce_p1": "t1 wormpep=CE1", "ce_p2": "t2", "ce_p3": "t3", "ce_p4": "t4"}`),
		"-map-b", writeTestFile(t, dir, "hc.json", `{"hc_p1": "h1", "hc_p2": "h2", "hc_p3": "h3"}`),
		"-gff-a", writeTestFile(t, dir, "ce.gff3", gffA),
		"-gff-b", writeTestFile(t, dir, "hc.gff3", gffB),
		"-id-prefix", "transcript:",
		"-q",
		report,
	}
	return dir, args
}

const wantText = `Group (a:b = 2:1)
a I                    +    2 3 100 400 1
b scf1                 -    1 2 10 50 0

Group (a:b = 1:2)
a II                   +    1 1 500 600 0
b scf1                 -    1 2 60 90 0
b scf2                 +    1 1 5 20 0
`

func TestRunContiguityText(t *testing.T) {
	t.Parallel()
	_, args := createSampleRun(t)

	var stdout, stderr bytes.Buffer
	if err := run(args, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if got := stdout.String(); got != wantText {
		t.Errorf("output:\n%s\nwant:\n%s", got, wantText)
	}
}

func TestRunContiguityBackendsAgree(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		extra []string
	}{
		{"explicit subcommand", []string{"contiguity"}},
		{"sqlite in memory", []string{"-backend", "sqlite"}},
		{"sqlite file", []string{"-backend", "sqlite", "-db", "transcripts.db"}},
		{"single worker", []string{"-j", "1"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir, args := createSampleRun(t)
			extra := append([]string(nil), tt.extra...)
			for i, a := range extra {
				if a == "transcripts.db" {
					extra[i] = filepath.Join(dir, a)
				}
			}

			var stdout, stderr bytes.Buffer
			if err := run(append(extra, args...), &stdout, &stderr); err != nil {
				t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
			}
			if got := stdout.String(); got != wantText {
				t.Errorf("output:\n%s\nwant:\n%s", got, wantText)
			}
		})
	}
}

func TestRunContiguityJSON(t *testing.T) {
	t.Parallel()
	_, args := createSampleRun(t)

	var stdout, stderr bytes.Buffer
	if err := run(append([]string{"-format", "json"}, args...), &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	var rep model.ContiguityReport
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, stdout.String())
	}
	if rep.Report != "table.ce-hc" {
		t.Errorf("report = %q", rep.Report)
	}
	var positions []int
	for _, g := range rep.Groups {
		positions = append(positions, g.Index)
	}
	if !reflect.DeepEqual(positions, []int{0, 2}) {
		t.Errorf("group positions = %v, want [0 2]", positions)
	}
}

func TestRunContiguityToon(t *testing.T) {
	t.Parallel()
	_, args := createSampleRun(t)

	var stdout, stderr bytes.Buffer
	if err := run(append([]string{"-format", "toon"}, args...), &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{
		"report: table.ce-hc",
		"groups[2]{group,a,b}:",
		"  1,2,1",
		"  3,1,2",
		"  1,a,I,+,2,3,100,400,1",
		`  3,b,scf1,"-",1,2,60,90,0`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRunExcludeScaffolds(t *testing.T) {
	t.Parallel()
	_, args := createSampleRun(t)

	var stdout, stderr bytes.Buffer
	if err := run(append([]string{"-exclude-scaffolds", "scf*,II"}, args...), &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	want := "Group (a:b = 2:1)\na I                    +    2 3 100 400 1\n"
	if got := stdout.String(); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestRunMaxGroups(t *testing.T) {
	t.Parallel()
	_, args := createSampleRun(t)

	var stdout, stderr bytes.Buffer
	if err := run(append([]string{"-n", "1"}, args...), &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if got := strings.Count(stdout.String(), "Group ("); got != 1 {
		t.Errorf("expected 1 group, got %d:\n%s", got, stdout.String())
	}
}

func TestRunFromParsedJSON(t *testing.T) {
	t.Parallel()
	dir, args := createSampleRun(t)
	report := args[len(args)-1]

	var parsed, stderr bytes.Buffer
	if err := run([]string{"parse", report}, &parsed, &stderr); err != nil {
		t.Fatalf("parse: %v\nstderr: %s", err, stderr.String())
	}
	jsonPath := writeTestFile(t, dir, "groups.json", parsed.String())

	args[len(args)-1] = jsonPath
	var stdout bytes.Buffer
	if err := run(args, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if got := stdout.String(); got != wantText {
		t.Errorf("output:\n%s\nwant:\n%s", got, wantText)
	}
}

func TestRunWarnsAboutUnannotatedNames(t *testing.T) {
	t.Parallel()
	dir, args := createSampleRun(t)
	// Drop -q and add a label whose transcript is not annotated.
	var kept []string
	for _, a := range args {
		if a != "-q" {
			kept = append(kept, a)
		}
	}
	writeTestFile(t, dir, "hc.json", `{"hc_p1": "h1", "hc_p2": "h2", "hc_p3": "h3", "hc_p9": "h9"}`)

	var stdout, stderr bytes.Buffer
	if err := run(kept, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(stderr.String(), "Warning: side b: 1 of 4 mapped transcripts") {
		t.Errorf("expected warning, got stderr:\n%s", stderr.String())
	}
}

func TestRunUnresolvedTranscriptFails(t *testing.T) {
	t.Parallel()
	dir, args := createSampleRun(t)
	writeTestFile(t, dir, "hc.gff3", "scf1\tmaker\tmRNA\t10\t50\t.\t-\t.\tID=transcript:h1\n")

	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	if err == nil {
		t.Fatalf("expected error, got output:\n%s", stdout.String())
	}
	if !strings.Contains(err.Error(), "transcript:h2") {
		t.Errorf("error %q does not name the missing transcript", err)
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()
	_, args := createSampleRun(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no report", args[:len(args)-1], "expected one report argument"},
		{"missing mapping", args[2:], "-map-a is required"},
		{"bad format", append([]string{"-format", "xml"}, args...), "unsupported format"},
		{"bad backend", append([]string{"-backend", "bolt"}, args...), "unsupported backend"},
		{"db without sqlite", append([]string{"-db", "x.db"}, args...), "-db requires -backend sqlite"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunMalformedReport(t *testing.T) {
	t.Parallel()
	dir, args := createSampleRun(t)
	writeTestFile(t, dir, "table.ce-hc", "no separator here\n")

	var stdout, stderr bytes.Buffer
	if err := run(args, &stdout, &stderr); err == nil || !strings.Contains(err.Error(), "no separator") {
		t.Errorf("expected malformed report error, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"-V", "--version"} {
		var stdout, stderr bytes.Buffer
		if err := run([]string{flag}, &stdout, &stderr); err != nil {
			t.Fatalf("run %s: %v", flag, err)
		}
		if got := stdout.String(); got != "orthoscan dev\n" {
			t.Errorf("%s: got %q", flag, got)
		}
	}
}

func TestReorderArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"flags first", []string{"-q", "r.txt"}, []string{"-q", "r.txt"}},
		{"positional first", []string{"r.txt", "-format", "json"}, []string{"-format", "json", "r.txt"}},
		{"value flag", []string{"-map-a", "a.json", "r.txt", "-v"}, []string{"-map-a", "a.json", "-v", "r.txt"}},
		{"stdin dash", []string{"-", "-q"}, []string{"-q", "-"}},
		{"double dash", []string{"-q", "--", "-odd"}, []string{"-q", "-odd"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := reorderArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("reorderArgs(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRunWormBaseAnnotation(t *testing.T) {
	t.Parallel()
	dir, args := createSampleRun(t)
	writeTestFile(t, dir, "ce.gff3", `##gff-version 3
##sequence-region I 1 15072434
I	WormBase	gene	100	400	.	+	.	ID=Gene:WBGene00000001;Name=WBGene00000001;locus=abc-1;biotype=protein_coding
I	WormBase	mRNA	100	200	.	+	.	ID=transcript:t1;Parent=Gene:WBGene00000001;Name=t1;wormpep=CE:CE00001;locus=abc-1
I	WormBase	exon	100	150	.	+	.	Parent=transcript:t1
I	WormBase	CDS	110	150	.	+	0	ID=CDS:t1;Parent=transcript:t1;prediction_status=Confirmed
I	WormBase	mRNA	300	400	.	+	.	Parent=Gene:WBGene00000001;ID=transcript:t2;Name=t2
I	WormBase	mRNA	250	260	.	+	.	Parent=Gene:WBGene00000002;Name=t3;ID=transcript:t3;
II	WormBase	mRNA	500	600	.	+	.	ID=transcript%3At4;Parent=Gene:WBGene00000004
`)

	for _, backend := range []string{"memory", "sqlite"} {
		var stdout, stderr bytes.Buffer
		if err := run(append([]string{"-backend", backend}, args...), &stdout, &stderr); err != nil {
			t.Fatalf("%s: run: %v\nstderr: %s", backend, err, stderr.String())
		}
		if got := stdout.String(); got != wantText {
			t.Errorf("%s output:\n%s\nwant:\n%s", backend, got, wantText)
		}
	}
}

func TestRunWarnsAboutEmptyHeaders(t *testing.T) {
	t.Parallel()
	dir, args := createSampleRun(t)
	var kept []string
	for _, a := range args {
		if a != "-q" {
			kept = append(kept, a)
		}
	}
	writeTestFile(t, dir, "ce.json", `{"ce_p1": "t1", "ce_p2": "t2", "ce_p3": "t3", "ce_p4": "t4", "ce_p9": " "}`)

	var stdout, stderr bytes.Buffer
	if err := run(kept, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(stderr.String(), "Warning: side a: 1 labels map to an empty header and cannot be resolved: ce_p9") {
		t.Errorf("expected empty header warning, got stderr:\n%s", stderr.String())
	}
	if got := stdout.String(); got != wantText {
		t.Errorf("output:\n%s\nwant:\n%s", got, wantText)
	}
}

func TestRunTrailingSeparator(t *testing.T) {
	t.Parallel()
	dir, args := createSampleRun(t)
	writeTestFile(t, dir, "table.ce-hc", sampleReport()+separator+"\n")

	var stdout, stderr bytes.Buffer
	if err := run(args, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if got := stdout.String(); got != wantText {
		t.Errorf("output:\n%s\nwant:\n%s", got, wantText)
	}
}

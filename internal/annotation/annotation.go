// Package annotation reads transcript coordinates from GFF3 annotation files.
package annotation

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"

	"github.com/phobologic/orthoscan/internal/model"
)

// DefaultFeatureType is the GFF feature type that marks a full transcript.
const DefaultFeatureType = "mRNA"

// Transcript is one transcript feature read from an annotation.
type Transcript struct {
	ID       string
	Interval model.GenomicInterval
}

// Scan reads r and calls fn for every feature whose type is featureType.
// Comment and directive lines are dropped before parsing, and reading stops
// at a ##FASTA section.
func Scan(r io.Reader, featureType string, fn func(Transcript) error) error {
	if featureType == "" {
		featureType = DefaultFeatureType
	}

	sc := featio.NewScanner(gff.NewReader(newFeatureLines(r)))
	for sc.Next() {
		f, ok := sc.Feat().(*gff.Feature)
		if !ok || f.Feature != featureType {
			continue
		}
		t, err := transcriptFrom(f)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	if err := sc.Error(); err != nil {
		return fmt.Errorf("reading annotation: %w", err)
	}
	return nil
}

func transcriptFrom(f *gff.Feature) (Transcript, error) {
	id := attributeID(f.FeatAttributes)
	if id == "" {
		return Transcript{}, fmt.Errorf("%s feature on %s at %d: missing ID attribute", f.Feature, f.SeqName, f.FeatStart+1)
	}

	var strand model.Strand
	switch f.FeatStrand {
	case seq.Plus:
		strand = model.Plus
	case seq.Minus:
		strand = model.Minus
	default:
		return Transcript{}, fmt.Errorf("transcript %s: strand must be + or -", id)
	}

	// gff.Feature holds zero-based half-open coordinates.
	iv := model.GenomicInterval{
		Scaffold: f.SeqName,
		Start:    f.FeatStart + 1,
		End:      f.FeatEnd,
		Strand:   strand,
	}
	if iv.Start > iv.End {
		return Transcript{}, fmt.Errorf("transcript %s: start %d after end %d", id, iv.Start, iv.End)
	}
	return Transcript{ID: id, Interval: iv}, nil
}

// attributeID returns the decoded value of the ID attribute.
func attributeID(attrs gff.Attributes) string {
	for _, a := range attrs {
		if strings.TrimSpace(a.Tag) != "ID" {
			continue
		}
		val := strings.Trim(strings.TrimSpace(a.Value), `"`)
		if dec, err := url.PathUnescape(val); err == nil {
			val = dec
		}
		return val
	}
	return ""
}

// gff2Attributes rewrites a GFF3 attribute column (tag=value;tag=value) into
// the GFF2 layout (tag "value"; tag "value") read by gff.Reader. Pairs already
// in GFF2 form pass through. Tags gff.Reader rejects are dropped.
func gff2Attributes(col []byte) []byte {
	var b bytes.Buffer
	for _, pair := range bytes.Split(col, []byte{';'}) {
		pair = bytes.TrimSpace(pair)
		if len(pair) == 0 || bytes.Equal(pair, []byte(".")) {
			continue
		}
		tag, val, ok := bytes.Cut(pair, []byte{'='})
		tag = bytes.TrimSpace(tag)
		if !ok {
			tag, _, _ = bytes.Cut(pair, []byte{' '})
		}
		if !validTag(tag) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		if !ok {
			b.Write(pair)
			continue
		}
		b.Write(tag)
		b.WriteString(` "`)
		b.Write(bytes.TrimSpace(val))
		b.WriteByte('"')
	}
	return b.Bytes()
}

// validTag reports whether gff.Reader accepts tag: letters and underscores.
func validTag(tag []byte) bool {
	if len(tag) == 0 {
		return false
	}
	for _, c := range tag {
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// featureLine rewrites the attribute column of one feature line.
func featureLine(line []byte) []byte {
	fields := bytes.Split(line, []byte{'\t'})
	if len(fields) < 9 {
		return line
	}
	if bytes.Equal(fields[6], []byte("?")) {
		fields[6] = []byte(".")
	}
	fields[8] = gff2Attributes(fields[8])
	return bytes.Join(fields, []byte{'\t'})
}

// featureLines filters an annotation stream down to feature lines with
// GFF2-style attributes.
type featureLines struct {
	r    *bufio.Reader
	buf  bytes.Buffer
	done bool
}

func newFeatureLines(r io.Reader) *featureLines {
	return &featureLines{r: bufio.NewReader(r)}
}

func (fl *featureLines) Read(p []byte) (int, error) {
	for fl.buf.Len() == 0 && !fl.done {
		line, err := fl.r.ReadBytes('\n')
		if len(line) > 0 {
			trimmed := bytes.TrimSpace(line)
			switch {
			case bytes.HasPrefix(trimmed, []byte("##FASTA")):
				fl.done = true
			case len(trimmed) == 0 || trimmed[0] == '#':
			default:
				fl.buf.Write(featureLine(trimmed))
				fl.buf.WriteByte('\n')
			}
		}
		if err == io.EOF {
			fl.done = true
		} else if err != nil {
			return 0, err
		}
	}
	if fl.buf.Len() == 0 {
		return 0, io.EOF
	}
	return fl.buf.Read(p)
}

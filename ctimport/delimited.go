package ctimport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/carbocation/pfx"
	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 && len(delimiters[0]) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}

// readGrid reads every record with a fixed delimiter, tolerating ragged
// rows such as preamble lines.
func readGrid(data []byte, delimiter rune) ([][]string, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	return cr.ReadAll()
}

// candidateDelimiters puts the detected delimiter first, then the usual
// suspects.
func candidateDelimiters(data []byte) []rune {
	detected := DetermineDelimiter(bytes.NewReader(data))

	out := []rune{detected}
	for _, d := range []rune{'\t', ',', ';'} {
		if d != detected {
			out = append(out, d)
		}
	}
	return out
}

// ParseDelimited reads a CSV or TSV instrument export. Preamble lines above
// the header are allowed.
func ParseDelimited(r io.Reader, sourceFile string) (ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{SourceFile: sourceFile}, pfx.Err(err)
	}

	var lastErr error
	for _, delim := range candidateDelimiters(data) {
		grid, err := readGrid(data, delim)
		if err != nil {
			lastErr = err
			continue
		}

		if _, _, found := DetectLayout(grid); !found {
			continue
		}

		return parseGrid(grid, sourceFile)
	}

	if lastErr != nil {
		return ParseResult{SourceFile: sourceFile}, pfx.Err(fmt.Errorf("%s: %w", sourceFile, lastErr))
	}

	return ParseResult{SourceFile: sourceFile}, fmt.Errorf("%s: could not find header row (looked for layouts %s)", sourceFile, LayoutNames())
}

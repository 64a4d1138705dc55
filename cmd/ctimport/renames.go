package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/carbocation/ddct/ctimport"
)

// ReadRenames reads a two-column from => to mapping. Blank lines and lines
// starting with # are ignored. An empty path yields no renames.
func ReadRenames(path string) (map[string]string, error) {
	out := make(map[string]string)
	if path == "" {
		return out, nil
	}

	f, err := os.Open(ctimport.ExpandHome(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.Comment = '#'
	r.FieldsPerRecord = -1

	recs, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	for i, rec := range recs {
		if len(rec) < 2 {
			return nil, fmt.Errorf("%s line %d: expected 2 columns, found %d", path, i+1, len(rec))
		}

		from, to := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if from == "" || to == "" {
			continue
		}
		out[from] = to
	}

	return out, nil
}

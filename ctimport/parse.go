package ctimport

import (
	"context"
	"log"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/ddct"
)

// ParseFile reads one instrument export. Files ending in .xls or .xlsx are
// read as workbooks; anything else as (possibly compressed) delimited text.
func ParseFile(ctx context.Context, filePath string, client *storage.Client) (ParseResult, error) {
	source := SourceName(filePath)

	switch strings.ToLower(path.Ext(filePath)) {
	case ".xls":
		f, err := OpenRaw(ctx, filePath, client)
		if err != nil {
			return ParseResult{SourceFile: source}, err
		}
		defer f.Close()

		return ParseExcel(f, source)
	case ".xlsx":
		f, err := OpenRaw(ctx, filePath, client)
		if err != nil {
			return ParseResult{SourceFile: source}, err
		}
		defer f.Close()

		return ParseXLSX(f, source)
	}

	f, err := Open(ctx, filePath, client)
	if err != nil {
		return ParseResult{SourceFile: source}, err
	}
	defer f.Close()

	return ParseDelimited(f, source)
}

// ParseFiles reads every file and collapses their replicates together. A
// file that fails to parse is logged and skipped, the way a batch of
// uploads tolerates one bad export; it is an error only if nothing parsed.
func ParseFiles(ctx context.Context, paths []string, client *storage.Client) ([]ddct.CollapsedRow, []ParseResult, error) {
	records := make([]ddct.RawCtRecord, 0)
	parsed := make([]ParseResult, 0, len(paths))

	var firstErr error
	for _, p := range paths {
		res, err := ParseFile(ctx, p, client)
		if err != nil {
			log.Printf("Skipping %s: %v\n", p, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		log.Printf("%s: %d rows parsed (%s layout)\n", res.SourceFile, len(res.Records), res.Layout)
		parsed = append(parsed, res)
		records = append(records, res.Records...)
	}

	if len(parsed) == 0 && firstErr != nil {
		return nil, nil, firstErr
	}

	return ddct.Collapse(records), parsed, nil
}

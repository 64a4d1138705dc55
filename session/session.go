package session

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"

	"cloud.google.com/go/storage"
	"github.com/carbocation/ddct"
	"github.com/carbocation/ddct/ctimport"
	"github.com/carbocation/pfx"
)

// Session is everything a user has entered: the experiment configuration,
// the Ct rows, and the per-sample grouping assignments.
type Session struct {
	Config ddct.ExperimentConfig `json:"experiment_config"`
	Rows   []ddct.CtRow          `json:"ct_rows"`

	// SampleMetadata maps sample ID => grouping variable => condition.
	SampleMetadata map[string]map[string]string `json:"sample_metadata,omitempty"`
}

// Export writes the session as indented JSON.
func (s *Session) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return pfx.Err(enc.Encode(s))
}

// Import reads a session written by Export. Rows are checked for structural
// problems here, so that everything downstream can trust them.
func Import(r io.Reader) (*Session, error) {
	out := &Session{}

	if err := json.NewDecoder(r).Decode(out); err != nil {
		if e, ok := err.(*json.SyntaxError); ok {
			log.Printf("syntax error at byte offset %d", e.Offset)
		}
		return nil, pfx.Err(err)
	}

	if err := ddct.CheckRows(out.Rows); err != nil {
		return nil, pfx.Err(err)
	}

	if out.Config.Groups == nil {
		out.Config.Groups = out.Config.DeriveGroups()
	}

	return out, nil
}

// ParseFromPath imports a session file from a local path or, given a
// client, a gs:// URL. Compressed files are accepted.
func ParseFromPath(ctx context.Context, path string, client *storage.Client) (*Session, error) {
	f, err := ctimport.Open(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Import(f)
}

// ParseConfigFromPath reads a bare experiment configuration.
func ParseConfigFromPath(path string) (ddct.ExperimentConfig, error) {
	out := ddct.ExperimentConfig{}

	f, err := os.Open(ctimport.ExpandHome(path))
	if err != nil {
		return out, pfx.Err(err)
	}
	defer f.Close()

	err = json.NewDecoder(f).Decode(&out)
	if err != nil {
		if e, ok := err.(*json.SyntaxError); ok {
			log.Printf("syntax error at byte offset %d", e.Offset)
			return out, pfx.Err(err)
		}

		return out, pfx.Err(err)
	}

	return out.Normalize(), nil
}

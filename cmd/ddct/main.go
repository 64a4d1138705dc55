// ddct runs a ΔΔCt analysis on a saved session, or on an experiment
// configuration plus a long-form Ct table, and writes the results table.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/ddct"
	"github.com/carbocation/ddct/compileinfo"
	"github.com/carbocation/ddct/ctimport"
	"github.com/carbocation/ddct/session"
	"github.com/carbocation/ddct/store"
)

var (
	STDOUT = bufio.NewWriterSize(os.Stdout, 4096)
)

func main() {
	defer STDOUT.Flush()

	var sessionPath, configPath, dataPath, format, referenceAxis, dbPath string
	var strict, methods, version bool
	flag.StringVar(&sessionPath, "session", "", "Session JSON with the experiment configuration and Ct rows. May be a gs:// URL.")
	flag.StringVar(&configPath, "config", "", "Experiment configuration JSON. Used with --data instead of --session.")
	flag.StringVar(&dataPath, "data", "", "Long-form table with sample_id, gene, ct and grouping columns. Used with --config. May be a gs:// URL.")
	flag.StringVar(&format, "format", "tsv", "Output format: tsv, csv or json.")
	flag.StringVar(&referenceAxis, "reference-axis", "", "(Optional) Grouping variable whose reference condition defines the baseline. Default: the first grouping variable. Pass 'reference_grouping' to use the configured reference grouping.")
	flag.BoolVar(&strict, "strict-metadata", false, "Fail if the rows averaged into one sample/gene disagree on a grouping value, instead of keeping the first.")
	flag.StringVar(&dbPath, "db", "", "(Optional) sqlite archive in which to record the run.")
	flag.BoolVar(&methods, "methods", false, "Print a methods paragraph for the analysis to stderr.")
	flag.BoolVar(&version, "version", false, "Print build information and exit.")
	flag.Parse()

	if version {
		compileinfo.Fprint(os.Stderr)
		return
	}

	if sessionPath == "" && (configPath == "" || dataPath == "") {
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()

	var client *storage.Client
	if strings.HasPrefix(sessionPath, "gs://") || strings.HasPrefix(dataPath, "gs://") {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	sess, err := LoadSession(ctx, sessionPath, configPath, dataPath, client)
	if err != nil {
		log.Fatalln(err)
	}

	for _, missing := range ddct.Readiness(sess.Config) {
		log.Println("Warning:", missing)
	}

	opts := ddct.Options{ReferenceAxis: referenceAxis}
	if referenceAxis == "reference_grouping" {
		opts.ReferenceAxis = sess.Config.ReferenceGrouping
	}
	if strict {
		opts.MetadataPolicy = ddct.RequireHomogeneous
	}

	results, problems, err := sess.Run(opts)
	var confErr *ddct.ConfigurationError
	if errors.As(err, &confErr) {
		log.Fatalln("Cannot run the analysis:", confErr)
	} else if err != nil {
		log.Fatalln(err)
	}

	if len(problems) > 0 {
		for _, p := range problems {
			log.Println(p)
		}
		log.Fatalf("%d validation problems; no results were computed\n", len(problems))
	}

	log.Printf("Computed %d sample/gene results\n", len(results.Rows))

	if methods {
		fmt.Fprintln(os.Stderr, ddct.MethodsSummary(sess.Config, ddct.SampleCount(sess.Rows)))
	}

	if dbPath != "" {
		db, err := store.Open(dbPath)
		if err != nil {
			log.Fatalln(err)
		}
		defer db.Close()

		id, err := db.SaveRun(ctx, sess, results)
		if err != nil {
			log.Fatalln(err)
		}
		log.Println("Archived run", id)
	}

	if err := WriteResults(results, format); err != nil {
		log.Fatalln(err)
	}
}

// LoadSession reads a session file, or assembles a session from a
// configuration and a long-form table.
func LoadSession(ctx context.Context, sessionPath, configPath, dataPath string, client *storage.Client) (*session.Session, error) {
	if sessionPath != "" {
		return session.ParseFromPath(ctx, sessionPath, client)
	}

	cfg, err := session.ParseConfigFromPath(configPath)
	if err != nil {
		return nil, err
	}

	f, err := ctimport.Open(ctx, dataPath, client)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ctimport.ReadLongForm(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dataPath, err)
	}

	return &session.Session{Config: cfg, Rows: rows}, nil
}

func WriteResults(results *ddct.Results, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(STDOUT)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "csv":
		return results.WriteDelimited(STDOUT, ',')
	case "tsv":
		return results.WriteDelimited(STDOUT, '\t')
	}

	return fmt.Errorf("unknown format %q (use tsv, csv or json)", format)
}

// ctimport reads qPCR instrument exports (.xls, .xlsx, .csv, .tsv, .txt, possibly
// compressed, locally or on Google Storage), collapses technical replicates,
// and writes one row per sample, gene and source file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/ddct"
	"github.com/carbocation/ddct/compileinfo"
	"github.com/carbocation/ddct/ctimport"
	"github.com/carbocation/ddct/session"
)

var (
	STDOUT = bufio.NewWriterSize(os.Stdout, 4096)
)

func main() {
	defer STDOUT.Flush()

	var files, sampleRenames, geneRenames, sessionPath string
	var longForm, hist, version bool
	flag.StringVar(&files, "files", "", "Comma-separated instrument export files. May be gs:// URLs. Additional files may be passed as arguments.")
	flag.StringVar(&sampleRenames, "rename-samples", "", "(Optional) Two-column tab-delimited file mapping sample IDs to new names. Renamed samples that collide are merged.")
	flag.StringVar(&geneRenames, "rename-genes", "", "(Optional) Two-column tab-delimited file mapping gene names to new names.")
	flag.StringVar(&sessionPath, "session", "", "(Optional) Also write a session JSON, ready for grouping assignments, to this path.")
	flag.BoolVar(&longForm, "longform", false, "Write sample_id, gene, ct columns ready for analysis instead of the collapsed replicate table.")
	flag.BoolVar(&hist, "hist", false, "Print a histogram of the collapsed Ct values to stderr.")
	flag.BoolVar(&version, "version", false, "Print build information and exit.")
	flag.Parse()

	if version {
		compileinfo.Fprint(os.Stderr)
		return
	}

	paths := flag.Args()
	for _, f := range strings.Split(files, ",") {
		if f = strings.TrimSpace(f); f != "" {
			paths = append(paths, f)
		}
	}

	if len(paths) == 0 {
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()

	var client *storage.Client
	for _, p := range paths {
		if strings.HasPrefix(p, "gs://") {
			var err error
			client, err = storage.NewClient(ctx)
			if err != nil {
				log.Fatalln(err)
			}
			defer client.Close()
			break
		}
	}

	collapsed, parsed, err := ctimport.ParseFiles(ctx, paths, client)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Parsed %d of %d files into %d sample/gene rows\n", len(parsed), len(paths), len(collapsed))

	for _, p := range parsed {
		if !p.Run.RunEndTime.IsZero() {
			log.Printf("%s: run ended %s\n", p.SourceFile, p.Run.RunEndTime.Format("2006-01-02 15:04"))
		}
	}

	samples, err := ReadRenames(sampleRenames)
	if err != nil {
		log.Fatalln(err)
	}
	genes, err := ReadRenames(geneRenames)
	if err != nil {
		log.Fatalln(err)
	}
	if len(samples) > 0 || len(genes) > 0 {
		before := len(collapsed)
		collapsed = ddct.RenameCollapsed(collapsed, samples, genes)
		log.Printf("Renaming left %d of %d rows\n", len(collapsed), before)
	}

	if hist {
		if err := PrintHistogram(collapsed); err != nil {
			log.Fatalln(err)
		}
	}

	if sessionPath != "" {
		if err := WriteSession(sessionPath, collapsed); err != nil {
			log.Fatalln(err)
		}
	}

	if longForm {
		_, rows := session.LoadCollapsed(ddct.ExperimentConfig{}, collapsed)
		if err := ctimport.WriteLongForm(STDOUT, rows, '\t'); err != nil {
			log.Fatalln(err)
		}
		return
	}

	if err := ctimport.WriteCollapsed(STDOUT, collapsed); err != nil {
		log.Fatalln(err)
	}
}

func PrintHistogram(collapsed []ddct.CollapsedRow) error {
	cts := make([]float64, 0, len(collapsed))
	for _, c := range collapsed {
		cts = append(cts, c.Ct)
	}
	if len(cts) == 0 {
		return fmt.Errorf("no Ct values to summarize")
	}

	// The number of buckets is arbitrary.
	hist := histogram.Hist(20, cts)

	return histogram.Fprint(os.Stderr, hist, histogram.Linear(5))
}

func WriteSession(path string, collapsed []ddct.CollapsedRow) error {
	s := &session.Session{}
	s.Load(collapsed)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := s.Export(f); err != nil {
		return err
	}

	log.Printf("Wrote session with %d samples and %d genes to %s\n", ddct.SampleCount(s.Rows), len(s.Config.Genes), path)

	return f.Close()
}

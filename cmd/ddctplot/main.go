// ddctplot draws ΔΔCt results, as written by `ddct -format json`, as PNG
// charts: one per facet.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/carbocation/ddct"
	"github.com/carbocation/ddct/compileinfo"
	"github.com/carbocation/ddct/ctimport"
	"github.com/carbocation/ddct/plot"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._=-]+`)

func main() {
	var resultsPath, genes, groupBy, yScale, kind, output string
	opts := plot.Options{}
	var version bool
	flag.StringVar(&resultsPath, "results", "", "Results JSON written by ddct -format json.")
	flag.StringVar(&genes, "genes", "", "(Optional) Comma-separated genes to plot. Default: all.")
	flag.StringVar(&groupBy, "group-by", "gene", "Comma-separated columns joined to form each x-axis label.")
	flag.StringVar(&yScale, "y-scale", "foldchange", "ddct, foldchange or log2foldchange.")
	flag.StringVar(&kind, "kind", "bar", "bar (group means) or points (every sample).")
	flag.StringVar(&opts.FacetCol, "facet-col", "", "(Optional) Column whose values split the chart into panels.")
	flag.StringVar(&opts.FacetRow, "facet-row", "", "(Optional) Second column whose values split the chart into panels.")
	flag.StringVar(&opts.ColorBy, "color-by", "", "(Optional) Column whose values are drawn as separate series.")
	flag.BoolVar(&opts.HideNTC, "hide-ntc", false, "Drop samples whose ID contains the word NTC.")
	flag.StringVar(&output, "output", "ddct", "Prefix for the PNG files. Facet labels are appended.")
	flag.BoolVar(&version, "version", false, "Print build information and exit.")
	flag.Parse()

	if version {
		compileinfo.Fprint(os.Stderr)
		return
	}

	if resultsPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	var err error
	if opts.YScale, err = plot.ParseYScale(yScale); err != nil {
		log.Fatalln(err)
	}
	if opts.Kind, err = plot.ParseKind(kind); err != nil {
		log.Fatalln(err)
	}
	opts.Genes = splitList(genes)
	opts.GroupBy = splitList(groupBy)

	results, err := ReadResults(resultsPath)
	if err != nil {
		log.Fatalln(err)
	}

	points, err := plot.Prepare(results, opts)
	if err != nil {
		log.Fatalln(err)
	}

	for _, facet := range plot.Facets(points, opts) {
		name := FacetFilename(output, facet.Label)
		if err := WritePNG(name, facet, opts); err != nil {
			log.Fatalln(err)
		}
		log.Printf("Wrote %d points to %s\n", len(facet.Points), name)
	}
}

func ReadResults(path string) (*ddct.Results, error) {
	f, err := os.Open(ctimport.ExpandHome(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := &ddct.Results{}
	if err := json.NewDecoder(f).Decode(out); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return out, nil
}

func WritePNG(name string, facet plot.Facet, opts plot.Options) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := plot.Render(f, facet, opts); err != nil {
		return err
	}

	return f.Close()
}

// FacetFilename turns a facet label such as "Sex=F, gene=IL6" into
// prefix_Sex=F_gene=IL6.png.
func FacetFilename(prefix, label string) string {
	if label == "" {
		return prefix + ".png"
	}

	return prefix + "_" + strings.Trim(unsafeFileChars.ReplaceAllString(label, "_"), "_") + ".png"
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

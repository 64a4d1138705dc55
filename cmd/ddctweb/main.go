// ddctweb serves the ΔΔCt analysis over HTTP. Every request carries its own
// session, so requests never share state beyond the optional run archive.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/carbocation/ddct/compileinfo"
	"github.com/carbocation/ddct/store"
)

var global *Global

func main() {
	errors := make(chan error, 1)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig,
		os.Interrupt,
		syscall.SIGTERM,
	)

	var dbPath string
	var port int
	var version bool
	flag.IntVar(&port, "port", 9019, "Port for HTTP server")
	flag.StringVar(&dbPath, "db", "", "(Optional) sqlite archive for runs posted with archive=true. If empty, runs are not archived.")
	flag.BoolVar(&version, "version", false, "Print build information and exit.")
	flag.Parse()

	if version {
		compileinfo.Fprint(os.Stderr)
		return
	}

	global = &Global{
		Site: "ΔΔCt",
		log:  log.New(os.Stderr, log.Prefix(), log.Ldate|log.Ltime),
	}

	if dbPath != "" {
		db, err := store.Open(dbPath)
		if err != nil {
			log.Fatalln(err)
		}
		defer db.Close()
		global.db = db
	}

	global.log.Println("Launching", global.Site, compileinfo.Get())

	go func() {
		global.log.Println("Starting HTTP server on port", port)
		if err := http.ListenAndServe(fmt.Sprintf(`:%d`, port), router(global)); err != nil {
			errors <- err
			return
		}
	}()

	select {
	case sigl := <-sig:
		global.log.Printf("\nExit: %s\n", sigl.String())
	case err := <-errors:
		// Return a status code indicating failure
		global.log.Println("Exiting due to error", err)
		os.Exit(1)
	}
}

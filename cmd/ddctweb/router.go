package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/interpose/middleware"
	"github.com/justinas/alice"
)

type handler struct {
	*Global

	router *mux.Router
}

func router(config *Global) http.Handler {
	router := mux.NewRouter()
	POST := router.Methods("POST").Subrouter()
	GET := router.Methods("GET", "HEAD").Subrouter()

	h := handler{Global: config, router: router}

	GET.HandleFunc("/version", h.Version).Name("version")
	GET.HandleFunc("/runs", h.ListRuns).Name("runs")
	GET.HandleFunc("/runs/{id}", h.GetRun).Name("run")

	//
	// POST
	//
	POST.HandleFunc("/validate", h.Validate)
	POST.HandleFunc("/process", h.Process)
	POST.HandleFunc("/plot.png", h.Plot)

	standard := alice.New(
		// Log all requests to STDOUT
		middleware.GorillaLog(),
	)

	return standard.Then(router)
}

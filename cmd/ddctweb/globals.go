package main

import (
	"github.com/carbocation/ddct/store"
)

type Global struct {
	log logger

	// db is nil when runs are not archived.
	db *store.Store

	Site string
}

type logger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

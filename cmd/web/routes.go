package main

import (
	"encoding/gob"
	"github.com/justinas/alice"
	"net/http"
)

func (app *application) routes() http.Handler {
	// Session values round-trip through gob.
	gob.Register([]string{})

	mux := http.NewServeMux()

	session := alice.New(app.sessionManager.LoadAndSave, noSurf, commonContext)

	mux.Handle("GET /{$}", session.ThenFunc(app.home))
	mux.Handle("POST /research", session.ThenFunc(app.startResearch))
	mux.Handle("GET /runs/{id}", session.ThenFunc(app.runDetail))
	mux.Handle("GET /runs/{id}/answer", session.ThenFunc(app.runAnswer))

	mux.HandleFunc("GET /api/healthy", app.healthy)

	return app.recoverPanic(app.logRequest(secureHeaders(mux)))
}

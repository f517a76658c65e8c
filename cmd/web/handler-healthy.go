package main

import "net/http"

// healthy reports readiness. Probes and the test harness poll it while the
// server comes up, so it bypasses the session middleware chain.
func (app *application) healthy(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

package main

import (
	"context"
	"github.com/mkarhu/inquest/internal/errors"
	"log/slog"
	"net/http"
	"strings"
)

const (
	flashSessionKey      = "flash"
	runHistorySessionKey = "runHistory"
	runHistoryLimit      = 10
)

// startResearch resolves the query to a run and launches the multi-pass loop
// in the background. Resolving here is cheap for queries already researched
// because decomposition is cached by query text, and it gives us the run id
// to redirect to before the slow passes begin.
func (app *application) startResearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	query := strings.TrimSpace(r.PostForm.Get("query"))
	if query == "" {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	result, err := app.resolver.Resolve(r.Context(), query)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	app.recordRunHistory(r, result.RunID)
	app.sessionManager.Put(r.Context(), flashSessionKey, "Research started.")

	// The research loop outlives the request. The pipeline resolves the same
	// query again and hits the decomposition cache created above.
	go func() {
		ctx := context.Background()
		if _, runErr := app.pipeline.Run(ctx, query); runErr != nil {
			app.logger.LogAttrs(ctx, slog.LevelError, "background research run failed",
				slog.String("run_id", result.RunID), errors.SlogError(runErr))
		}
	}()

	destination := "/runs/" + result.RunID
	h := app.htmx.NewHandler(w, r)
	if h.IsHxRequest() {
		w.Header().Set("HX-Redirect", destination)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, destination, http.StatusSeeOther)
}

// recordRunHistory prepends the run id to the visitor's session history.
// Re-researching a query moves its run back to the front instead of
// duplicating it.
func (app *application) recordRunHistory(r *http.Request, runID string) {
	history, _ := app.sessionManager.Get(r.Context(), runHistorySessionKey).([]string)

	updated := make([]string, 0, len(history)+1)
	updated = append(updated, runID)
	for _, id := range history {
		if id != runID {
			updated = append(updated, id)
		}
	}
	if len(updated) > runHistoryLimit {
		updated = updated[:runHistoryLimit]
	}

	app.sessionManager.Put(r.Context(), runHistorySessionKey, updated)
}

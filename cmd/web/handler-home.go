package main

import (
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/models"
	"github.com/mkarhu/inquest/internal/repositories"
	"net/http"
)

const recentRunLimit = 10

type homeTemplateData struct {
	BaseTemplateData
	YourRuns []models.Run
	Runs     []models.Run
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	yourRuns, err := app.sessionRuns(r)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	runs, err := app.runs.Recent(r.Context(), recentRunLimit)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data := homeTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		YourRuns:         yourRuns,
		Runs:             runs,
	}

	app.render(w, r, http.StatusOK, "home", data)
}

// sessionRuns loads the runs the visitor started in this session, newest
// first. Ids whose run has vanished are skipped rather than treated as errors,
// since the session can outlive a rebuilt database.
func (app *application) sessionRuns(r *http.Request) ([]models.Run, error) {
	history, _ := app.sessionManager.Get(r.Context(), runHistorySessionKey).([]string)

	runs := make([]models.Run, 0, len(history))
	for _, id := range history {
		run, err := app.runs.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, repositories.ErrNoRun) {
				continue
			}
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

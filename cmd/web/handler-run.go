package main

import (
	"encoding/json"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/models"
	"github.com/mkarhu/inquest/internal/repositories"
	"net/http"
)

type runTemplateData struct {
	BaseTemplateData
	Run          *models.Run
	SubQuestions []models.SubQuestion
	Sources      []string
	FollowUps    []string
	HasAnswer    bool
}

func (app *application) runDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := r.PathValue("id")

	run, err := app.runs.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoRun) {
			app.notFound(w, r)
			return
		}
		app.serverError(w, r, err)
		return
	}

	subQuestions, err := app.runs.SubQuestions(ctx, runID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	sources, err := app.evidence.URLsForRun(ctx, runID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	var followUps []string
	evaluation, err := app.evaluations.LatestForRun(ctx, runID)
	if err == nil {
		// Malformed stored JSON just hides the follow-up section.
		_ = json.Unmarshal([]byte(evaluation.RecommendedFollowUp), &followUps)
	} else if !errors.Is(err, repositories.ErrNoEvaluation) {
		app.serverError(w, r, err)
		return
	}

	data := runTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Run:              run,
		SubQuestions:     subQuestions,
		Sources:          sources,
		FollowUps:        followUps,
		HasAnswer:        run.FinalAnswer.Valid && run.FinalAnswer.String != "",
	}

	app.render(w, r, http.StatusOK, "run", data)
}

// runAnswer serves the polled answer fragment. While the background loop is
// still working it returns the in-progress section so the poll keeps going;
// once the final answer lands the swap replaces it and polling stops.
func (app *application) runAnswer(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")

	run, err := app.runs.Get(r.Context(), runID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoRun) {
			app.notFound(w, r)
			return
		}
		app.serverError(w, r, err)
		return
	}

	// No base data here: popping the flash from a poll would eat a notice
	// the visitor never saw.
	data := runTemplateData{ //nolint:exhaustruct // the partial reads Run and HasAnswer only
		Run:       run,
		HasAnswer: run.FinalAnswer.Valid && run.FinalAnswer.String != "",
	}
	app.renderPartial(w, r, "answer", data)
}

package main

import (
	"bytes"
	"embed"
	"fmt"
	"github.com/mkarhu/inquest/internal/contexthelpers"
	"github.com/mkarhu/inquest/internal/errors"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates
var templateFS embed.FS

type BaseTemplateData struct {
	CurrentPath string
	Flash       string
}

// newBaseTemplateData pops the session flash, so any one-shot notice set by
// the previous request renders exactly once.
func (app *application) newBaseTemplateData(r *http.Request) BaseTemplateData {
	return BaseTemplateData{
		CurrentPath: contexthelpers.CurrentPath(r.Context()),
		Flash:       app.sessionManager.PopString(r.Context(), flashSessionKey),
	}
}

// pageTemplate returns a template for the given page name.
//
// pageName corresponds to a file in templates/pages. It has to include a
// template named "page".
func (app *application) pageTemplate(pageName string) (*template.Template, error) {
	// The FuncMap needs to exist before parsing; render overrides it with the
	// request-scoped values.
	t, err := template.New(pageName).Funcs(template.FuncMap{
		"csrf": func() string {
			panic("not implemented")
		},
	}).ParseFS(templateFS,
		"templates/base.gohtml",
		"templates/partials/*.gohtml",
		fmt.Sprintf("templates/pages/%s.gohtml", pageName),
	)
	if err != nil {
		return nil, errors.Wrap(err, "parse page template", slog.String("page", pageName))
	}
	return t, nil
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, file string, data any) {
	var (
		err error
		t   *template.Template
	)

	if t, err = app.pageTemplate(file); err != nil {
		app.serverError(w, r, err)
		return
	}

	buf := new(bytes.Buffer)
	csrf := fmt.Sprintf("<input type=\"hidden\" name=\"csrf_token\" value=\"%s\"/>", contexthelpers.CSRFToken(r.Context()))
	t.Funcs(template.FuncMap{
		"csrf": func() template.HTML {
			return template.HTML(csrf) //nolint:gosec // The token comes from nosurf, not from user input.
		},
	})
	if err = t.ExecuteTemplate(buf, "base", data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("template", file)))
		return
	}

	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}

// renderPartial writes a single named partial without the base layout,
// serving htmx polling swaps.
func (app *application) renderPartial(w http.ResponseWriter, r *http.Request, partialName string, data any) {
	t, err := template.ParseFS(templateFS, "templates/partials/*.gohtml")
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "parse partial templates"))
		return
	}

	buf := new(bytes.Buffer)
	if err = t.ExecuteTemplate(buf, partialName, data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute partial", slog.String("partial", partialName)))
		return
	}

	_, _ = buf.WriteTo(w)
}

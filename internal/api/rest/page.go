package rest

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/fortuna/pythia/internal/service"
	log "github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFiles embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFiles, "templates/index.html"))

// pageData is what the form page renders.
type pageData struct {
	Home       string
	Away       string
	HTHG       int
	HTAG       int
	MinGoals   int
	MaxGoals   int
	Submitted  bool
	Prediction *service.Prediction
	Error      string
}

// Page serves the prediction form and, on POST, its results
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	data := pageData{MinGoals: service.MinGoals, MaxGoals: service.MaxGoals}
	status := http.StatusOK

	if r.Method == http.MethodPost {
		data.Submitted = true
		if err := r.ParseForm(); err != nil {
			status = http.StatusBadRequest
			data.Error = err.Error()
		} else {
			q, err := parseQuery(r.PostForm.Get("home"), r.PostForm.Get("away"), r.PostForm.Get("hthg"), r.PostForm.Get("htag"))
			data.Home, data.Away, data.HTHG, data.HTAG = q.Home, q.Away, q.HTHG, q.HTAG
			if err != nil {
				status = http.StatusBadRequest
				data.Error = err.Error()
			} else if pred, err := h.predictions.Predict(r.Context(), q); err != nil {
				data.Error = pageErrorMessage(err)
			} else {
				data.Prediction = pred
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Errorf("rendering page: %v", err)
	}
}

func pageErrorMessage(err error) string {
	if errors.Is(err, service.ErrNoMatch) {
		return "Aucune correspondance trouvée pour les noms d'équipes saisis."
	}
	return err.Error()
}

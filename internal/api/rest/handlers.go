package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fortuna/pythia/internal/service"
	log "github.com/sirupsen/logrus"
)

const version = "1.0.0"

const healthCheckTimeout = 2 * time.Second

// HealthChecker is a backing service the health endpoint reports on
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	predictions *service.PredictionService
	checks      map[string]HealthChecker
}

// NewHandler creates a new handler
func NewHandler(predictions *service.PredictionService) *Handler {
	return &Handler{
		predictions: predictions,
		checks:      make(map[string]HealthChecker),
	}
}

// AddHealthCheck reports checker under name on /health
func (h *Handler) AddHealthCheck(name string, checker HealthChecker) {
	h.checks[name] = checker
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	models := h.predictions.Predictor().Models()
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "pythia",
		"version": version,
		"matches": models.Table.Len(),
		"models":  len(models.Bank.Targets()),
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	for name, checker := range h.checks {
		if err := checker.HealthCheck(ctx); err != nil {
			log.Warnf("health check %s failed: %v", name, err)
			response[name] = "error"
			response["status"] = "degraded"
			continue
		}
		response[name] = "ok"
	}
	respondJSON(w, http.StatusOK, response)
}

// GetTeams returns the known home and away teams
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	models := h.predictions.Predictor().Models()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"home_teams": models.HomeTeams,
		"away_teams": models.AwayTeams,
	})
}

// GetModels lists the trained targets
func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	bank := h.predictions.Predictor().Models().Bank
	response := map[string]interface{}{
		"targets": bank.Targets(),
		"trees":   bank.ScoreHome.Trees(),
	}
	if bank.HTFT != nil {
		response["htft_classes"] = bank.HTFT.Classes()
	}
	respondJSON(w, http.StatusOK, response)
}

// GetPrediction predicts from query string parameters
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q, err := parseQuery(values.Get("home"), values.Get("away"), values.Get("hthg"), values.Get("htag"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}
	h.predict(w, r, q)
}

// PostPrediction predicts from a JSON body
func (h *Handler) PostPrediction(w http.ResponseWriter, r *http.Request) {
	var q service.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.predict(w, r, q)
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request, q service.Query) {
	pred, err := h.predictions.Predict(r.Context(), q)
	if err != nil {
		var qe *service.QueryError
		if errors.As(err, &qe) {
			respondQueryError(w, qe)
			return
		}
		respondError(w, http.StatusInternalServerError, "Prediction failed", err)
		return
	}
	respondJSON(w, http.StatusOK, pred)
}

// parseQuery builds a query from raw form or URL values. Empty goal fields count as 0.
func parseQuery(home, away, hthg, htag string) (service.Query, error) {
	q := service.Query{Home: home, Away: away}
	var err error
	if q.HTHG, err = parseGoals("hthg", hthg); err != nil {
		return q, err
	}
	if q.HTAG, err = parseGoals("htag", htag); err != nil {
		return q, err
	}
	return q, nil
}

func parseGoals(name, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func respondQueryError(w http.ResponseWriter, qe *service.QueryError) {
	response := map[string]interface{}{
		"error":  qe.Kind.Error(),
		"kind":   qe.Code(),
		"status": http.StatusUnprocessableEntity,
	}
	if qe.Cause != nil {
		response["details"] = qe.Cause.Error()
	}
	respondJSON(w, http.StatusUnprocessableEntity, response)
}

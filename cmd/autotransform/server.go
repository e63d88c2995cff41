package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/House-lovers7/tone-bridge/errors"
	"github.com/House-lovers7/tone-bridge/types"
)

// server exposes the evaluation and admin HTTP API.
type server struct {
	app    *application
	logger *slog.Logger
}

func newServer(app *application, logger *slog.Logger) *server {
	return &server{app: app, logger: logger}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /transform", s.handleTransform)

	mux.HandleFunc("GET /config/{tenant_id}", s.handleGetConfig)
	mux.HandleFunc("PUT /config/{tenant_id}", s.handlePutConfig)
	mux.HandleFunc("DELETE /config/{tenant_id}", s.handleDeleteConfig)

	mux.HandleFunc("GET /rules/{tenant_id}", s.handleListRules)
	mux.HandleFunc("PUT /rules/{tenant_id}", s.handlePutRule)
	mux.HandleFunc("DELETE /rules/{tenant_id}/{rule_id}", s.handleDeleteRule)

	mux.HandleFunc("GET /logs/{tenant_id}", s.handleListLogs)
	mux.HandleFunc("GET /usage/{tenant_id}", s.handleUsage)
	mux.HandleFunc("GET /platforms", s.handlePlatforms)

	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": appName,
		"version": Version,
	})
}

func (s *server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var msgCtx types.MessageContext
	if !s.decode(w, r, &msgCtx) {
		return
	}

	result, err := s.app.engine.Evaluate(r.Context(), &msgCtx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var msgCtx types.MessageContext
	if !s.decode(w, r, &msgCtx) {
		return
	}

	eval, err := s.app.engine.Evaluate(r.Context(), &msgCtx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if !eval.ShouldTransform {
		s.writeJSON(w, http.StatusOK, &types.TransformResult{
			Success:     true,
			Original:    msgCtx.Message,
			Transformed: msgCtx.Message,
		})
		return
	}

	result, err := s.app.coordinator.Transform(r.Context(), &msgCtx, eval)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")

	cfg, err := s.app.store.GetConfig(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConfigNotFound) {
			s.writeJSON(w, http.StatusOK, map[string]bool{"enabled": false})
			return
		}
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg types.TenantConfig
	if !s.decode(w, r, &cfg) {
		return
	}
	cfg.TenantID = r.PathValue("tenant_id")

	if err := s.app.store.PutConfig(r.Context(), &cfg); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, &cfg)
}

func (s *server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.app.store.DeleteConfig(r.Context(), r.PathValue("tenant_id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.app.store.ListRules(r.Context(), r.PathValue("tenant_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rules)
}

func (s *server) handlePutRule(w http.ResponseWriter, r *http.Request) {
	var rule types.Rule
	if !s.decode(w, r, &rule) {
		return
	}

	if err := s.app.store.PutRule(r.Context(), r.PathValue("tenant_id"), &rule); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, &rule)
}

func (s *server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	ruleID := r.PathValue("rule_id")

	if err := s.app.store.DeleteRule(r.Context(), tenantID, ruleID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	logs, err := s.app.logs.ListByTenant(r.Context(), r.PathValue("tenant_id"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}

func (s *server) handleUsage(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "date must be formatted as YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	counts, err := s.app.usage.StatusCounts(r.Context(), r.PathValue("tenant_id"), day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"tenant_id": r.PathValue("tenant_id"),
		"date":      day.Format("2006-01-02"),
		"statuses":  counts,
	})
}

func (s *server) handlePlatforms(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{
		"platforms": s.app.platforms.Names(),
	})
}

// decode reads the JSON request body into dst, writing a 400 and
// returning false on malformed input.
func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func (s *server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}

// writeError maps classified errors onto HTTP statuses.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsInvalid(err):
		status = http.StatusBadRequest
	case apperrors.IsTransient(err):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

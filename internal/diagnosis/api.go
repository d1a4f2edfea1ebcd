package diagnosis

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medassist/symptomcheck/internal/shared/auth"
	"github.com/medassist/symptomcheck/internal/shared/config"
	"github.com/medassist/symptomcheck/internal/shared/errors"
	"github.com/medassist/symptomcheck/internal/shared/middleware"
)

// HistoryStore persists successful diagnoses for authenticated users.
type HistoryStore interface {
	Save(ctx context.Context, record *HistoryRecord) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]HistoryRecord, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

// Handler provides HTTP handlers for the diagnosis module
type Handler struct {
	svc     *Service
	history HistoryStore
	authCfg config.AuthConfig
	limiter *middleware.IPRateLimiter
	logger  zerolog.Logger
}

// NewHandler creates a new diagnosis handler
func NewHandler(svc *Service, history HistoryStore, authCfg config.AuthConfig, limiter *middleware.IPRateLimiter, logger zerolog.Logger) *Handler {
	return &Handler{
		svc:     svc,
		history: history,
		authCfg: authCfg,
		limiter: limiter,
		logger:  logger.With().Str("component", "diagnosis.api").Logger(),
	}
}

// Routes registers the diagnosis routes. The diagnosis submission itself
// permits anonymous callers; history is owner-scoped and requires auth.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(auth.Optional(h.authCfg), h.limiter.Middleware).Post("/", h.CreateDiagnosis)
	r.Get("/stats", h.CacheStats)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.authCfg))
		r.Get("/history", h.ListHistory)
		r.Delete("/history/{id}", h.DeleteHistory)
	})

	return r
}

// CreateDiagnosis handles a diagnosis request end to end.
func (h *Handler) CreateDiagnosis(w http.ResponseWriter, r *http.Request) {
	var req DiagnosisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	userID := auth.SubjectFromContext(r.Context())

	resp, err := h.svc.Diagnose(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	// Persist history for signed-in users; the response does not depend on
	// this write succeeding.
	if userID != auth.AnonymousUser && h.history != nil {
		record := &HistoryRecord{
			ID:           uuid.New(),
			UserID:       userID,
			Symptoms:     req.Symptoms,
			Vitals:       req.Vitals,
			Demographics: req.Demographics,
			Summary:      resp.Summary,
			Conditions:   resp.Conditions,
			TopUrgency:   TopUrgency(resp.Conditions),
			ConsentAt:    time.Now().UTC(),
			CreatedAt:    time.Now().UTC(),
		}
		if err := h.history.Save(r.Context(), record); err != nil {
			h.logger.Warn().Err(err).Str("user", userID).Msg("history write failed")
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// CacheStats returns the advisory cache counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

// ListHistory returns the caller's diagnosis history, newest first.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	records, err := h.history.ListByUser(r.Context(), user.ID, 50, 0)
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to list history"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

// DeleteHistory deletes one of the caller's own history records.
func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid history id"))
		return
	}

	if err := h.history.Delete(r.Context(), user.ID, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"code":       appErr.Code,
			"message":    appErr.Message,
			"suggestion": appErr.Suggestion,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    "SERVER_ERROR",
		"message": "internal server error",
	})
}

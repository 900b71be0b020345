// Package debughttp exposes a local operator endpoint: metrics, storage
// reports, on-demand migration and sign-in for the running client.
package debughttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/cardsync/internal/client/services"
	"github.com/dmitrijs2005/cardsync/internal/common"
	"github.com/dmitrijs2005/cardsync/internal/logging"
	"github.com/dmitrijs2005/cardsync/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CardDeleter removes a card locally and, when signed in, remotely.
type CardDeleter interface {
	DeleteCard(ctx context.Context, id string) error
}

type Handler struct {
	data    services.DataService
	auth    services.AuthService
	deleter CardDeleter
	logger  logging.Logger
}

func NewHandler(data services.DataService, auth services.AuthService, deleter CardDeleter, logger logging.Logger) *Handler {
	return &Handler{data: data, auth: auth, deleter: deleter, logger: logger.With("module", "debug_http")}
}

// NewRouter wires the debug routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.Handler().ServeHTTP(w, r)
	})

	r.Route("/storage", func(r chi.Router) {
		r.Get("/report", h.report)
		r.Post("/migrate", h.migrate)
	})

	r.Get("/cards", h.listCards)
	r.Delete("/cards/{id}", h.deleteCard)

	if h.auth != nil {
		r.Post("/session", h.signIn)
		r.Delete("/session", h.signOut)
	}
	return r
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.data.StorageReport(r.Context()))
}

func (h *Handler) migrate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.data.MigrateFromOldStorage(r.Context()))
}

func (h *Handler) listCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.data.GetAllCards(r.Context()))
}

func (h *Handler) deleteCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.deleter.DeleteCard(r.Context(), id); err != nil {
		// The local copy is gone either way; report the remote failure.
		h.logger.Warn(r.Context(), "delete card", "card_id", id, "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type signInRequest struct {
	Token string `json:"token"`
}

type signInResponse struct {
	UserID string `json:"userId"`
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	userID, err := h.auth.SignIn(r.Context(), req.Token)
	switch {
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	case err != nil:
		h.logger.Error(r.Context(), "sign in failed", "error", err)
		http.Error(w, "sign in failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse{UserID: userID})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context()); err != nil {
		h.logger.Error(r.Context(), "sign out failed", "error", err)
		http.Error(w, "sign out failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

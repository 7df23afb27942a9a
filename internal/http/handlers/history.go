package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"thumbgen/internal/domain"
)

const defaultHistoryPageSize = 20

func (a *App) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	limit := queryInt(r, "limit", defaultHistoryPageSize)
	offset := queryInt(r, "offset", 0)
	page, err := a.History.List(r.Context(), userID, limit, offset)
	if err != nil {
		a.logger(r).Error().Err(err).Msg("list history failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}
	a.json(w, http.StatusOK, page)
}

func (a *App) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	err := a.History.Delete(r.Context(), userID, id)
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "history record not found")
		return
	}
	if err != nil {
		a.logger(r).Error().Err(err).Str("history_id", id).Msg("delete history failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) ClearHistory(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := a.History.Clear(r.Context(), userID); err != nil {
		a.logger(r).Error().Err(err).Msg("clear history failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

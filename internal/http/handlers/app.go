package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"thumbgen/internal/domain"
	"thumbgen/internal/imagegen"
	"thumbgen/internal/infra"
	"thumbgen/internal/middleware"
	"thumbgen/internal/providers/prompt"
	"thumbgen/internal/storage"
)

// App carries the dependencies shared by every HTTP handler.
type App struct {
	Config   *infra.Config
	Logger   zerolog.Logger
	Users    domain.UserRepository
	History  domain.HistoryRepository
	Images   *imagegen.Orchestrator
	Enhancer prompt.Enhancer
	Uploader storage.Uploader

	JWTSecret string
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]errorBody{"error": {Code: errCode, Message: message}})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// logger returns the request-scoped logger installed by middleware.Logger,
// falling back to the app logger.
func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/fetch"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/pipeline"
)

// App carries the dependencies shared by all HTTP handlers.
type App struct {
	Config     *infra.Config
	Logger     zerolog.Logger
	SQL        infra.SQLExecutor
	Jobs       domain.JobRepository
	Valuations domain.ValuationRepository
	Users      domain.UserRepository
	Scheduler  pipeline.Scheduler
	Validate   *validator.Validate
}

// NewValidator builds the request validator. The trustedref rule accepts only
// references into the configured storage hosts, which keeps arbitrary URLs out
// of the pipeline's fetch stage.
func NewValidator(allowedHosts []string) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("trustedref", func(fl validator.FieldLevel) bool {
		return fetch.TrustedRef(fl.Field().String(), allowedHosts)
	})
	return v
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Error: code, Message: message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/portrait"
)

// App is the handler container; collaborators are injected so handlers stay
// testable in isolation.
type App struct {
	Orchestrator *portrait.Orchestrator
	Tracker      *portrait.Tracker
	Logger       infra.Logger
}

// NewApp assembles the handler container.
func NewApp(orchestrator *portrait.Orchestrator, logger infra.Logger) *App {
	return &App{
		Orchestrator: orchestrator,
		Tracker:      orchestrator.Tracker(),
		Logger:       logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, class domain.ErrorClass, message string) {
	a.json(w, code, map[string]string{"error": message, "class": string(class)})
}

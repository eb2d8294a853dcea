package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"server/internal/domain"
	"server/internal/portrait"

	"github.com/go-chi/chi/v5"
)

type generateResponse struct {
	RequestID   string `json:"requestId"`
	Message     string `json:"message"`
	ProgressURL string `json:"progressUrl"`
	FromCache   bool   `json:"fromCache,omitempty"`
}

// Generate accepts a generation request and acknowledges it immediately with
// a request id; the actual work proceeds asynchronously and is observable on
// the progress stream.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req portrait.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, domain.ErrClassValidation, "invalid payload")
		return
	}

	id, fromCache, err := a.Orchestrator.Submit(r.Context(), req)
	if err != nil {
		class := domain.ClassOf(err)
		status := http.StatusInternalServerError
		if class == domain.ErrClassValidation || class == domain.ErrClassContentPolicy {
			status = http.StatusBadRequest
		}
		a.error(w, status, class, domain.UserMessage(err))
		return
	}

	message := "generation started"
	if fromCache {
		message = "generation served from cache"
	}
	a.json(w, http.StatusOK, generateResponse{
		RequestID:   id,
		Message:     message,
		ProgressURL: "/api/generate/progress/" + id,
		FromCache:   fromCache,
	})
}

// Progress streams job events as server-sent events. The stream ends when the
// job reaches a terminal status or the client disconnects; disconnecting
// never cancels the underlying generation.
func (a *App) Progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestId")
	if id == "" {
		a.error(w, http.StatusBadRequest, domain.ErrClassValidation, "requestId is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, domain.ErrClassProvider, "streaming is not supported")
		return
	}

	events, cancel, err := a.Tracker.Subscribe(id)
	if err != nil {
		a.error(w, http.StatusNotFound, domain.ErrClassValidation, "unknown request id")
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeSSE(w, flusher, ev); err != nil {
				return
			}
			if ev.Status.Terminal() {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev portrait.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"server/internal/domain"
	"server/internal/portrait"
)

type analyzeBodyRequest struct {
	Image portrait.SourceImage `json:"image"`
}

// bodyAnalysis mirrors the shape the frontend expects. Actual feature
// detection is not implemented; the endpoint returns neutral defaults.
type bodyAnalysis struct {
	BodyType   string  `json:"bodyType"`
	Shoulders  string  `json:"shoulders"`
	Waist      string  `json:"waist"`
	Posture    string  `json:"posture"`
	Confidence float64 `json:"confidence"`
	Note       string  `json:"note"`
}

// AnalyzeBody is a collaborator stub kept for frontend compatibility.
func (a *App) AnalyzeBody(w http.ResponseWriter, r *http.Request) {
	var req analyzeBodyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, domain.ErrClassValidation, "invalid payload")
		return
	}
	if strings.TrimSpace(req.Image.Base64) == "" {
		a.error(w, http.StatusBadRequest, domain.ErrClassValidation, "image is required")
		return
	}
	a.json(w, http.StatusOK, bodyAnalysis{
		BodyType:   "average",
		Shoulders:  "average",
		Waist:      "average",
		Posture:    "neutral",
		Confidence: 0,
		Note:       "automatic body analysis is not available; neutral defaults applied",
	})
}

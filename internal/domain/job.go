package domain

import "time"

// JobStatus enumerates the lifecycle states of a generation job.
type JobStatus string

const (
	JobStatusStarting   JobStatus = "starting"
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// GenerationResult is the normalized outcome of a completed generation.
type GenerationResult struct {
	ImageURL    string    `json:"imageUrl"`
	Provider    string    `json:"provider"`
	ModelID     string    `json:"modelId"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Seed        int64     `json:"seed,omitempty"`
	FromCache   bool      `json:"fromCache"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Job tracks one asynchronous generation attempt. Progress never decreases
// and no field changes once the status is terminal.
type Job struct {
	ID         string            `json:"requestId"`
	Status     JobStatus         `json:"status"`
	Progress   float64           `json:"progress"`
	Message    string            `json:"message,omitempty"`
	Result     *GenerationResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	ErrorClass ErrorClass        `json:"errorClass,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

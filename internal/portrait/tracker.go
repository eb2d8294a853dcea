package portrait

import (
	"sync"
	"time"

	"server/internal/domain"
)

// Event is one progress notification pushed to a subscriber. The shape is
// serialized verbatim onto the SSE stream.
type Event struct {
	Type       string            `json:"type"`
	Status     domain.JobStatus  `json:"status"`
	Progress   float64           `json:"progress"`
	Message    string            `json:"message,omitempty"`
	ImageURL   string            `json:"imageUrl,omitempty"`
	FromCache  bool              `json:"fromCache,omitempty"`
	Error      string            `json:"error,omitempty"`
	ErrorClass domain.ErrorClass `json:"errorClass,omitempty"`
}

const (
	eventTypeProgress = "progress"
	eventTypeResult   = "result"
	eventTypeError    = "error"

	// subscriberBuffer comfortably exceeds the number of updates one job can
	// emit, so an attentive subscriber never misses an event. A stalled
	// subscriber loses intermediate progress events rather than blocking the
	// orchestrator; the terminal state remains readable via Snapshot.
	subscriberBuffer = 64

	// DefaultRetention keeps terminal jobs around briefly so a reconnecting
	// client can still read the outcome by request id.
	DefaultRetention = 2 * time.Minute
)

type trackedJob struct {
	job     domain.Job
	subs    map[int]chan Event
	nextSub int
}

// Tracker holds transient state for in-flight jobs keyed by request id and
// fans progress out to subscribers as an ordered push stream.
type Tracker struct {
	mu        sync.Mutex
	jobs      map[string]*trackedJob
	retention time.Duration
	now       func() time.Time
}

// NewTracker builds a tracker retaining terminal jobs for the given grace
// period. Non-positive retention falls back to DefaultRetention.
func NewTracker(retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{
		jobs:      make(map[string]*trackedJob),
		retention: retention,
		now:       time.Now,
	}
}

// Create registers a new job in the starting state.
func (t *Tracker) Create(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.jobs[id]; exists {
		return
	}
	now := t.now()
	t.jobs[id] = &trackedJob{
		job: domain.Job{
			ID:        id,
			Status:    domain.JobStatusStarting,
			Message:   "request accepted",
			CreatedAt: now,
			UpdatedAt: now,
		},
		subs: make(map[int]chan Event),
	}
}

// Update advances a job's non-terminal state. Progress is clamped so it never
// decreases; updates against a terminal job are ignored.
func (t *Tracker) Update(id string, status domain.JobStatus, progress float64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tj, ok := t.jobs[id]
	if !ok || tj.job.Status.Terminal() {
		return
	}
	if progress < tj.job.Progress {
		progress = tj.job.Progress
	}
	if progress > 1 {
		progress = 1
	}
	tj.job.Status = status
	tj.job.Progress = progress
	tj.job.Message = message
	tj.job.UpdatedAt = t.now()
	t.broadcast(tj, eventForJob(tj.job))
}

// Complete moves a job to its terminal completed state, delivers the result
// event, and closes all subscriber streams.
func (t *Tracker) Complete(id string, result domain.GenerationResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tj, ok := t.jobs[id]
	if !ok || tj.job.Status.Terminal() {
		return
	}
	tj.job.Status = domain.JobStatusCompleted
	tj.job.Progress = 1
	tj.job.Message = "generation completed"
	tj.job.Result = &result
	tj.job.UpdatedAt = t.now()
	t.finalize(id, tj)
}

// Fail moves a job to its terminal failed state with a classed error.
func (t *Tracker) Fail(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tj, ok := t.jobs[id]
	if !ok || tj.job.Status.Terminal() {
		return
	}
	tj.job.Status = domain.JobStatusFailed
	tj.job.Message = "generation failed"
	tj.job.Error = domain.UserMessage(err)
	tj.job.ErrorClass = domain.ClassOf(err)
	tj.job.UpdatedAt = t.now()
	t.finalize(id, tj)
}

// Subscribe returns an ordered event stream for a job, starting with a replay
// of its current state. The channel is closed once the job reaches a terminal
// state. The returned cancel func releases delivery resources; it never
// cancels the underlying generation.
func (t *Tracker) Subscribe(id string) (<-chan Event, func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tj, ok := t.jobs[id]
	if !ok {
		return nil, nil, domain.ErrJobNotFound
	}
	ch := make(chan Event, subscriberBuffer)
	ch <- eventForJob(tj.job)
	if tj.job.Status.Terminal() {
		close(ch)
		return ch, func() {}, nil
	}
	subID := tj.nextSub
	tj.nextSub++
	tj.subs[subID] = ch
	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		current, still := t.jobs[id]
		if !still {
			return
		}
		if sub, live := current.subs[subID]; live {
			delete(current.subs, subID)
			close(sub)
		}
	}
	return ch, cancel, nil
}

// Snapshot returns a copy of the job's current state.
func (t *Tracker) Snapshot(id string) (domain.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tj, ok := t.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return tj.job, true
}

// Remove drops a job immediately, closing any remaining subscriber streams.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(id)
}

func (t *Tracker) removeLocked(id string) {
	tj, ok := t.jobs[id]
	if !ok {
		return
	}
	for subID, ch := range tj.subs {
		delete(tj.subs, subID)
		close(ch)
	}
	delete(t.jobs, id)
}

// finalize delivers the terminal event, closes subscriber streams, and
// schedules removal after the retention window. Caller holds the lock.
func (t *Tracker) finalize(id string, tj *trackedJob) {
	t.broadcast(tj, eventForJob(tj.job))
	for subID, ch := range tj.subs {
		delete(tj.subs, subID)
		close(ch)
	}
	time.AfterFunc(t.retention, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.removeLocked(id)
	})
}

// broadcast pushes an event to every subscriber without blocking. Caller
// holds the lock, which serializes delivery and keeps per-job ordering.
func (t *Tracker) broadcast(tj *trackedJob, ev Event) {
	for _, ch := range tj.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func eventForJob(job domain.Job) Event {
	ev := Event{
		Type:     eventTypeProgress,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  job.Message,
	}
	switch job.Status {
	case domain.JobStatusCompleted:
		ev.Type = eventTypeResult
		if job.Result != nil {
			ev.ImageURL = job.Result.ImageURL
			ev.FromCache = job.Result.FromCache
		}
	case domain.JobStatusFailed:
		ev.Type = eventTypeError
		ev.Error = job.Error
		ev.ErrorClass = job.ErrorClass
	}
	return ev
}

package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"server/internal/domain"

	"github.com/rs/zerolog"
)

const (
	defaultReplicateBaseURL = "https://api.replicate.com"

	// Bounded polling: 60 attempts at 2 seconds covers roughly two minutes of
	// provider-side work before the call fails with a timeout.
	defaultReplicatePollInterval = 2 * time.Second
	defaultReplicateMaxPolls     = 60
)

// Replicate implements Generator against the prediction-polling API: a POST
// creates a prediction with a status URL which is polled until terminal.
type Replicate struct {
	baseURL      string
	apiToken     string
	model        string
	httpClient   *http.Client
	logger       zerolog.Logger
	pollInterval time.Duration
	maxPolls     int
}

// ReplicateOptions configures the prediction-polling client. Model overrides
// the profile's model id with a replicate version hash. PollInterval and
// MaxPolls exist for tests; zero values take the documented defaults.
type ReplicateOptions struct {
	BaseURL      string
	APIToken     string
	Model        string
	HTTPClient   *http.Client
	Logger       zerolog.Logger
	PollInterval time.Duration
	MaxPolls     int
}

// NewReplicate constructs the prediction-polling client.
func NewReplicate(opts ReplicateOptions) *Replicate {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultReplicateBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultReplicatePollInterval
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = defaultReplicateMaxPolls
	}
	return &Replicate{
		baseURL:      baseURL,
		apiToken:     opts.APIToken,
		model:        opts.Model,
		httpClient:   httpClient,
		logger:       opts.Logger,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
	}
}

// Name fulfils the Generator interface.
func (r *Replicate) Name() string { return "replicate" }

type replicateCreatePayload struct {
	Version string         `json:"version"`
	Input   replicateInput `json:"input"`
}

type replicateInput struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	Image             string  `json:"image,omitempty"`
	PromptStrength    float64 `json:"prompt_strength,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
	GuidanceScale     float64 `json:"guidance_scale,omitempty"`
	Width             int     `json:"width,omitempty"`
	Height            int     `json:"height,omitempty"`
	Scheduler         string  `json:"scheduler,omitempty"`
	Seed              int64   `json:"seed,omitempty"`
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Generate creates a prediction and polls its status URL until it reaches a
// terminal state or the attempt budget is exhausted.
func (r *Replicate) Generate(ctx context.Context, req Request, report ProgressFunc) (*Result, error) {
	if r.apiToken == "" {
		return nil, domain.NewError(domain.ErrClassAuthentication,
			"replicate API token is not configured; set REPLICATE_API_TOKEN")
	}

	model := r.model
	if model == "" {
		model = req.ModelID
	}

	input := replicateInput{
		Prompt:            req.Prompt,
		NegativePrompt:    req.NegativePrompt,
		NumInferenceSteps: req.Steps,
		GuidanceScale:     req.GuidanceScale,
		Width:             req.Width,
		Height:            req.Height,
		Scheduler:         req.Scheduler,
		Seed:              req.Seed,
	}
	if len(req.SourceData) > 0 {
		input.Image = DataURI(req.SourceMIME, req.SourceData)
		input.PromptStrength = req.Strength
	}
	payload, err := json.Marshal(replicateCreatePayload{Version: model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("replicate: marshal payload: %w", err)
	}

	report(0.05, "submitting to provider")

	prediction, err := r.createPrediction(ctx, payload)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("prediction_id", prediction.ID).Msg("replicate: prediction created")

	statusURL := prediction.URLs.Get
	if statusURL == "" {
		statusURL = fmt.Sprintf("%s/v1/predictions/%s", r.baseURL, prediction.ID)
	}

	for attempt := 1; attempt <= r.maxPolls; attempt++ {
		if err := sleepCtx(ctx, r.pollInterval); err != nil {
			return nil, err
		}

		current, err := r.fetchPrediction(ctx, statusURL)
		if err != nil {
			return nil, err
		}

		switch current.Status {
		case "succeeded":
			output, err := firstOutputURL(current.Output)
			if err != nil {
				return nil, domain.WrapError(domain.ErrClassProvider, "replicate returned malformed output", err)
			}
			report(0.95, "generation finished")
			return &Result{
				URL:      output,
				Width:    req.Width,
				Height:   req.Height,
				Provider: r.Name(),
				ModelID:  model,
			}, nil
		case "failed", "canceled":
			msg := current.Error
			if msg == "" {
				msg = "prediction " + current.Status
			}
			return nil, domain.NewError(domain.ErrClassProvider, "replicate: "+msg)
		default:
			// starting / processing
			progress := 0.1 + 0.8*float64(attempt)/float64(r.maxPolls)
			report(progress, "generating portrait")
		}
	}

	return nil, domain.NewError(domain.ErrClassTimeout,
		fmt.Sprintf("replicate did not finish within %d polling attempts", r.maxPolls))
}

func (r *Replicate) createPrediction(ctx context.Context, payload []byte) (*replicatePrediction, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/predictions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Token "+r.apiToken)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, networkError(r.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(r.Name(), resp.StatusCode, readBody(resp.Body))
	}

	var prediction replicatePrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, domain.WrapError(domain.ErrClassProvider, "replicate returned a malformed prediction", err)
	}
	if prediction.ID == "" {
		return nil, domain.NewError(domain.ErrClassProvider, "replicate did not return a prediction id")
	}
	return &prediction, nil
}

func (r *Replicate) fetchPrediction(ctx context.Context, statusURL string) (*replicatePrediction, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("replicate: build poll request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+r.apiToken)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, networkError(r.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(r.Name(), resp.StatusCode, readBody(resp.Body))
	}

	var prediction replicatePrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, domain.WrapError(domain.ErrClassProvider, "replicate returned a malformed status", err)
	}
	return &prediction, nil
}

// firstOutputURL handles the two output shapes replicate uses: a plain string
// or an array of strings.
func firstOutputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty output")
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 && many[0] != "" {
		return many[0], nil
	}
	return "", fmt.Errorf("unrecognized output shape: %s", string(raw))
}

var _ Generator = (*Replicate)(nil)

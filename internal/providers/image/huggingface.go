package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"

	"github.com/rs/zerolog"
)

const defaultHuggingFaceBaseURL = "https://api-inference.huggingface.co/models/"

// HuggingFace implements Generator against the hosted inference API: a single
// bearer-authenticated POST whose response body is the raw image bytes.
type HuggingFace struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// HuggingFaceOptions configures the hosted inference client.
type HuggingFaceOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewHuggingFace constructs the hosted inference client.
func NewHuggingFace(opts HuggingFaceOptions) *HuggingFace {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultHuggingFaceBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &HuggingFace{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

// Name fulfils the Generator interface.
func (h *HuggingFace) Name() string { return "huggingface" }

type huggingFacePayload struct {
	Inputs     string                `json:"inputs"`
	Parameters huggingFaceParameters `json:"parameters"`
}

type huggingFaceParameters struct {
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
	GuidanceScale     float64 `json:"guidance_scale,omitempty"`
	Width             int     `json:"width,omitempty"`
	Height            int     `json:"height,omitempty"`
}

// Generate performs the single synchronous inference call.
func (h *HuggingFace) Generate(ctx context.Context, req Request, report ProgressFunc) (*Result, error) {
	if h.apiKey == "" {
		return nil, domain.NewError(domain.ErrClassAuthentication,
			"huggingface API key is not configured; set HUGGINGFACE_API_KEY")
	}

	payload, err := json.Marshal(huggingFacePayload{
		Inputs: req.Prompt,
		Parameters: huggingFaceParameters{
			NegativePrompt:    req.NegativePrompt,
			NumInferenceSteps: req.Steps,
			GuidanceScale:     req.GuidanceScale,
			Width:             req.Width,
			Height:            req.Height,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("huggingface: marshal payload: %w", err)
	}

	report(0.1, "submitting to provider")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+req.ModelID, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("huggingface: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, networkError(h.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(h.Name(), resp.StatusCode, readBody(resp.Body))
	}

	report(0.8, "downloading generated image")
	data := readBody(resp.Body)
	if len(data) == 0 {
		return nil, domain.NewError(domain.ErrClassProvider, "huggingface returned an empty image")
	}

	return &Result{
		Data:     data,
		Format:   formatFromContentType(resp.Header.Get("Content-Type")),
		Width:    req.Width,
		Height:   req.Height,
		Provider: h.Name(),
		ModelID:  req.ModelID,
	}, nil
}

var _ Generator = (*HuggingFace)(nil)

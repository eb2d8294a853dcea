package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"

	"github.com/rs/zerolog"
)

const defaultSegmindBaseURL = "https://api.segmind.com/v1/sd1.5-img2img"

// Segmind implements Generator against the direct generation API: a single
// authenticated POST whose response carries the output image directly.
type Segmind struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// SegmindOptions configures the direct generation client.
type SegmindOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewSegmind constructs the direct generation client.
func NewSegmind(opts SegmindOptions) *Segmind {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultSegmindBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Segmind{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

// Name fulfils the Generator interface.
func (s *Segmind) Name() string { return "segmind" }

type segmindPayload struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Image          string  `json:"image,omitempty"`
	Strength       float64 `json:"strength,omitempty"`
	Steps          int     `json:"num_inference_steps,omitempty"`
	GuidanceScale  float64 `json:"guidance_scale,omitempty"`
	Scheduler      string  `json:"scheduler,omitempty"`
	Seed           int64   `json:"seed,omitempty"`
	ImgWidth       int     `json:"img_width,omitempty"`
	ImgHeight      int     `json:"img_height,omitempty"`
	Base64         bool    `json:"base64"`
}

type segmindResponse struct {
	Image  string `json:"image"`
	Output string `json:"output"`
}

// Generate performs the single synchronous generation call. The response is
// either a JSON envelope carrying the output or raw image bytes, depending on
// the model endpoint.
func (s *Segmind) Generate(ctx context.Context, req Request, report ProgressFunc) (*Result, error) {
	if s.apiKey == "" {
		return nil, domain.NewError(domain.ErrClassAuthentication,
			"segmind API key is not configured; set SEGMIND_API_KEY")
	}

	payload := segmindPayload{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Steps:          req.Steps,
		GuidanceScale:  req.GuidanceScale,
		Scheduler:      req.Scheduler,
		Seed:           req.Seed,
		ImgWidth:       req.Width,
		ImgHeight:      req.Height,
		Base64:         true,
	}
	if len(req.SourceData) > 0 {
		payload.Image = base64.StdEncoding.EncodeToString(req.SourceData)
		payload.Strength = req.Strength
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("segmind: marshal payload: %w", err)
	}

	report(0.1, "submitting to provider")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("segmind: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.apiKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, networkError(s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(s.Name(), resp.StatusCode, readBody(resp.Body))
	}

	report(0.8, "decoding generated image")

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "image/") {
		data := readBody(resp.Body)
		return &Result{
			Data:     data,
			Format:   formatFromContentType(contentType),
			Width:    req.Width,
			Height:   req.Height,
			Provider: s.Name(),
			ModelID:  req.ModelID,
		}, nil
	}

	var decoded segmindResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.WrapError(domain.ErrClassProvider, "segmind returned a malformed response", err)
	}

	switch {
	case decoded.Output != "":
		return &Result{
			URL:      decoded.Output,
			Width:    req.Width,
			Height:   req.Height,
			Provider: s.Name(),
			ModelID:  req.ModelID,
		}, nil
	case decoded.Image != "":
		data, err := base64.StdEncoding.DecodeString(decoded.Image)
		if err != nil {
			return nil, domain.WrapError(domain.ErrClassProvider, "segmind returned invalid base64 image data", err)
		}
		return &Result{
			Data:     data,
			Format:   "jpeg",
			Width:    req.Width,
			Height:   req.Height,
			Provider: s.Name(),
			ModelID:  req.ModelID,
		}, nil
	default:
		return nil, domain.NewError(domain.ErrClassProvider, "segmind returned neither an image nor an output URL")
	}
}

var _ Generator = (*Segmind)(nil)

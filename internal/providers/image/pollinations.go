package image

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultPollinationsBaseURL = "https://image.pollinations.ai/prompt/"

	// Transport failures against the free endpoint are common and safe to
	// retry since the whole generation is encoded in the request URL.
	pollinationsMaxAttempts   = 3
	pollinationsRetryInterval = 3 * time.Second
)

// Pollinations implements Generator against the free URL-templated service:
// the generation is encoded entirely in a GET URL and a successful fetch of
// that URL is the completed result.
type Pollinations struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// PollinationsOptions configures the free provider. APIKey is optional.
type PollinationsOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewPollinations constructs the free provider client.
func NewPollinations(opts PollinationsOptions) *Pollinations {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultPollinationsBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Pollinations{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

// Name fulfils the Generator interface.
func (p *Pollinations) Name() string { return "pollinations" }

// Generate fetches the templated URL and returns the response bytes as the
// generated image.
func (p *Pollinations) Generate(ctx context.Context, req Request, report ProgressFunc) (*Result, error) {
	params := url.Values{}
	params.Set("model", "flux")
	params.Set("width", strconv.Itoa(req.Width))
	params.Set("height", strconv.Itoa(req.Height))
	params.Set("nologo", "true")
	if req.Seed != 0 {
		params.Set("seed", strconv.FormatInt(req.Seed, 10))
	}
	if req.NegativePrompt != "" {
		params.Set("negative_prompt", req.NegativePrompt)
	}
	fullURL := p.baseURL + url.PathEscape(req.Prompt) + "?" + params.Encode()

	report(0.1, "submitting to provider")

	var lastErr error
	for attempt := 1; attempt <= pollinationsMaxAttempts; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("pollinations: build request: %w", err)
		}
		if p.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
		}

		resp, err := p.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = networkError(p.Name(), err)
			p.logger.Warn().Err(err).Int("attempt", attempt).Msg("pollinations: request failed")
			if attempt < pollinationsMaxAttempts {
				if sleepErr := sleepCtx(ctx, pollinationsRetryInterval); sleepErr != nil {
					return nil, sleepErr
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode != http.StatusOK {
			body := readBody(resp.Body)
			resp.Body.Close()
			return nil, classifyStatus(p.Name(), resp.StatusCode, body)
		}

		report(0.8, "downloading generated image")
		data := readBody(resp.Body)
		contentType := resp.Header.Get("Content-Type")
		resp.Body.Close()

		return &Result{
			Data:     data,
			Format:   formatFromContentType(contentType),
			Width:    req.Width,
			Height:   req.Height,
			Provider: p.Name(),
			ModelID:  "flux",
		}, nil
	}
	return nil, lastErr
}

var _ Generator = (*Pollinations)(nil)

package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"server/internal/domain"
)

// ProgressFunc reports provider-side progress in [0, 1] with a short
// human-readable step description.
type ProgressFunc func(progress float64, message string)

// Request is the normalized input handed to any provider. Parameters come
// from the resolved quality profile; prompts are prebuilt by the caller.
type Request struct {
	Prompt         string
	NegativePrompt string
	SourceData     []byte
	SourceMIME     string
	Strength       float64
	Width          int
	Height         int
	Steps          int
	GuidanceScale  float64
	Sampler        string
	Scheduler      string
	ModelID        string
	Seed           int64
	RequestID      string
}

// Result is the normalized provider output. Exactly one of URL or Data is
// set: URL when the provider hosts the output, Data when it returns bytes.
type Result struct {
	URL      string
	Data     []byte
	Format   string
	Width    int
	Height   int
	Provider string
	ModelID  string
}

// Generator is the contract implemented by all portrait providers.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request, report ProgressFunc) (*Result, error)
}

// DataURI encodes raw image bytes as a data URI for clients and providers
// that consume inline images.
func DataURI(mime string, data []byte) string {
	if mime == "" {
		mime = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
}

// formatFromContentType maps a response content type onto a short format tag.
func formatFromContentType(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

// classifyStatus turns a non-2xx provider response into a classed error.
// Credential problems are distinguished so the caller can surface actionable
// remediation instead of a generic provider failure.
func classifyStatus(provider string, status int, body []byte) error {
	detail := string(body)
	if len(detail) > 512 {
		detail = detail[:512]
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewError(domain.ErrClassAuthentication,
			fmt.Sprintf("%s rejected the API credential (status %d); check the configured key", provider, status))
	case http.StatusTooManyRequests:
		return domain.NewError(domain.ErrClassProvider,
			fmt.Sprintf("%s is rate limiting requests (status %d); try again shortly", provider, status))
	default:
		return domain.NewError(domain.ErrClassProvider,
			fmt.Sprintf("%s returned status %d: %s", provider, status, detail))
	}
}

// networkError wraps a transport-level failure.
func networkError(provider string, err error) error {
	return domain.WrapError(domain.ErrClassNetwork,
		fmt.Sprintf("network error talking to %s", provider), err)
}

// sleepCtx waits for the given duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// readBody drains a response body with a sane upper bound.
func readBody(r io.Reader) []byte {
	data, _ := io.ReadAll(io.LimitReader(r, 32<<20))
	return data
}

package portrait

import (
	"encoding/base64"
	"strings"

	"server/internal/domain"
)

// QualityMode is the coarse speed/fidelity setting chosen by the caller.
type QualityMode string

const (
	QualityFast     QualityMode = "fast"
	QualityBalanced QualityMode = "balanced"
	QualityHigh     QualityMode = "high"
)

// SourceImage is the uploaded face photo. The payload stays opaque to the
// orchestration core; only the image optimizer ever decodes it.
type SourceImage struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
}

// Empty reports whether no payload was supplied.
func (s SourceImage) Empty() bool {
	return strings.TrimSpace(s.Base64) == ""
}

// Decode returns the raw image bytes. A leading data-URI prefix is tolerated
// since browser clients commonly send canvas exports verbatim.
func (s SourceImage) Decode() ([]byte, error) {
	payload := strings.TrimSpace(s.Base64)
	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, domain.WrapError(domain.ErrClassValidation, "source image is not valid base64", err)
	}
	return data, nil
}

// GenerationOptions are the caller-supplied styling fields. All free-text
// fields are attacker-controlled and unbounded; they are only ever embedded
// into prompts, never interpreted.
type GenerationOptions struct {
	Pose        string  `json:"pose"`
	Background  string  `json:"background"`
	Clothing    string  `json:"clothing"`
	Lighting    string  `json:"lighting"`
	Style       string  `json:"style"`
	BodyType    string  `json:"bodyType"`
	Strength    float64 `json:"strength"`
	QualityMode string  `json:"qualityMode"`
}

// Normalize trims free-text fields and clamps strength into [0, 1].
func (o *GenerationOptions) Normalize() {
	o.Pose = strings.TrimSpace(o.Pose)
	o.Background = strings.TrimSpace(o.Background)
	o.Clothing = strings.TrimSpace(o.Clothing)
	o.Lighting = strings.TrimSpace(o.Lighting)
	o.Style = strings.TrimSpace(o.Style)
	o.BodyType = strings.TrimSpace(o.BodyType)
	o.QualityMode = strings.ToLower(strings.TrimSpace(o.QualityMode))
	if o.Strength < 0 {
		o.Strength = 0
	}
	if o.Strength > 1 {
		o.Strength = 1
	}
}

// FreeTextFields returns every caller-supplied text field, in prompt order.
func (o GenerationOptions) FreeTextFields() []string {
	return []string{o.Pose, o.Clothing, o.BodyType, o.Background, o.Lighting, o.Style}
}

// GenerationRequest is the full input to the orchestrator.
type GenerationRequest struct {
	Image   SourceImage       `json:"image"`
	Options GenerationOptions `json:"options"`
}

// Validate rejects requests missing the source image or any style-bearing
// description before a provider is ever contacted.
func (r *GenerationRequest) Validate() error {
	if r.Image.Empty() {
		return domain.WrapError(domain.ErrClassValidation, "source image is required", domain.ErrMissingSource)
	}
	for _, field := range r.Options.FreeTextFields() {
		if strings.TrimSpace(field) != "" {
			return nil
		}
	}
	return domain.WrapError(domain.ErrClassValidation, "at least one style description is required", domain.ErrMissingStyle)
}

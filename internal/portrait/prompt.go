package portrait

import "strings"

// NegativePrompt lists failure modes common to portrait models. It is fixed
// across all requests and deliberately not user-customizable so the output
// quality floor stays stable.
const NegativePrompt = "deformed, distorted, disfigured, poorly drawn, bad anatomy, wrong anatomy, " +
	"extra limb, missing limb, floating limbs, mutated hands and fingers, extra fingers, missing fingers, " +
	"fused fingers, too many fingers, long neck, disconnected limbs, mutation, mutated, ugly, disgusting, " +
	"blurry, out of focus, lowres, low quality, jpeg artifacts, compression artifacts, pixelated, grainy, " +
	"oversaturated, washed out, bad proportions, gross proportions, cloned face, duplicate, morbid, " +
	"mutilated, malformed, cross-eye, body out of frame, cartoon, anime, 3d render, sketch, drawing, " +
	"painting, illustration, watermark, signature, text, logo, username"

var qualityTokens = map[QualityMode]string{
	QualityFast:     "photorealistic portrait, high quality, sharp focus",
	QualityBalanced: "RAW photo, photorealistic portrait, ultra detailed skin texture, sharp focus",
	QualityHigh:     "masterpiece, RAW photo, hyperrealistic portrait, intricate skin detail, flawless sharp focus",
}

var cameraTokens = map[QualityMode]string{
	QualityFast:     "85mm lens, natural lighting",
	QualityBalanced: "85mm f/1.4 lens, soft studio lighting, 8k uhd",
	QualityHigh:     "medium format camera, 85mm f/1.2 lens, professional studio lighting, 8k uhd, subtle film grain",
}

// BuildPrompts composes the positive and negative prompts for a request.
// Section order matters for prompt weighting in the underlying models:
// quality tokens, camera specs, subject, body composition, environment, style.
func BuildPrompts(opts GenerationOptions, profile QualityProfile) (string, string) {
	sections := make([]string, 0, 8)

	sections = append(sections, qualityTokens[profile.Mode])
	sections = append(sections, cameraTokens[profile.Mode])

	appendLabelled := func(label, value string) {
		if v := strings.TrimSpace(value); v != "" {
			sections = append(sections, label+": "+v)
		}
	}
	appendLabelled("pose and expression", opts.Pose)
	appendLabelled("clothing and attire", opts.Clothing)
	appendLabelled("body type", opts.BodyType)
	appendLabelled("background setting", opts.Background)
	appendLabelled("lighting", opts.Lighting)
	appendLabelled("overall style", opts.Style)

	return strings.Join(sections, ", "), NegativePrompt
}

package portrait

// QualityProfile holds the concrete generation parameters derived from a
// quality tier. Profiles are static and never mutated after lookup.
type QualityProfile struct {
	Mode          QualityMode
	Width         int
	Height        int
	Steps         int
	GuidanceScale float64
	Sampler       string
	Scheduler     string
	ModelID       string
}

var qualityProfiles = map[QualityMode]QualityProfile{
	QualityFast: {
		Mode:          QualityFast,
		Width:         512,
		Height:        768,
		Steps:         20,
		GuidanceScale: 7,
		Sampler:       "Euler a",
		Scheduler:     "karras",
		ModelID:       "runwayml/stable-diffusion-v1-5",
	},
	QualityBalanced: {
		Mode:          QualityBalanced,
		Width:         768,
		Height:        1024,
		Steps:         30,
		GuidanceScale: 7.5,
		Sampler:       "DPM++ 2M",
		Scheduler:     "karras",
		ModelID:       "SG161222/Realistic_Vision_V5.1_noVAE",
	},
	QualityHigh: {
		Mode:          QualityHigh,
		Width:         1024,
		Height:        1536,
		Steps:         50,
		GuidanceScale: 8,
		Sampler:       "DPM++ 2M SDE",
		Scheduler:     "karras",
		ModelID:       "stabilityai/stable-diffusion-xl-base-1.0",
	},
}

// ResolveQuality maps a quality mode onto its profile. Unrecognized values
// fall back to the balanced profile; callers may pass unvalidated input.
func ResolveQuality(mode string) QualityProfile {
	if profile, ok := qualityProfiles[QualityMode(mode)]; ok {
		return profile
	}
	return qualityProfiles[QualityBalanced]
}

package portrait

import (
	"testing"
	"time"

	"server/internal/domain"
)

func sampleRequest() GenerationRequest {
	return GenerationRequest{
		Image: SourceImage{Base64: "aGVsbG8gd29ybGQ=", MimeType: "image/png"},
		Options: GenerationOptions{
			Pose:        "three-quarter view",
			Background:  "studio backdrop",
			Clothing:    "white shirt",
			Lighting:    "soft box",
			Style:       "corporate headshot",
			BodyType:    "slim",
			Strength:    0.75,
			QualityMode: "balanced",
		},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewResultCache(time.Hour)
	key := Fingerprint(sampleRequest())
	want := domain.GenerationResult{ImageURL: "https://cdn.example.com/out.png", Provider: "stub"}

	if _, ok := cache.Get(key); ok {
		t.Fatal("empty cache reported a hit")
	}
	cache.Put(key, want)
	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("expected a hit immediately after put")
	}
	if got.ImageURL != want.ImageURL || got.Provider != want.Provider {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := NewResultCache(time.Hour)
	base := time.Now()
	now := base
	cache.now = func() time.Time { return now }

	key := Fingerprint(sampleRequest())
	cache.Put(key, domain.GenerationResult{ImageURL: "x"})

	now = base.Add(59 * time.Minute)
	if _, ok := cache.Get(key); !ok {
		t.Fatal("entry expired before the ttl window")
	}

	now = base.Add(time.Hour + time.Second)
	if _, ok := cache.Get(key); ok {
		t.Fatal("entry survived past the ttl window")
	}
	if cache.Len() != 0 {
		t.Fatal("expired entry was not evicted on lookup")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := sampleRequest()

	mutations := map[string]func(*GenerationRequest){
		"pose":        func(r *GenerationRequest) { r.Options.Pose = "profile view" },
		"background":  func(r *GenerationRequest) { r.Options.Background = "meadow" },
		"clothing":    func(r *GenerationRequest) { r.Options.Clothing = "black tee" },
		"lighting":    func(r *GenerationRequest) { r.Options.Lighting = "neon" },
		"style":       func(r *GenerationRequest) { r.Options.Style = "film noir" },
		"bodyType":    func(r *GenerationRequest) { r.Options.BodyType = "broad" },
		"strength":    func(r *GenerationRequest) { r.Options.Strength = 0.5 },
		"qualityMode": func(r *GenerationRequest) { r.Options.QualityMode = "high" },
		"image":       func(r *GenerationRequest) { r.Image.Base64 = "b3RoZXIgcGF5bG9hZA==" },
		"mime":        func(r *GenerationRequest) { r.Image.MimeType = "image/jpeg" },
	}

	baseline := Fingerprint(base)
	for field, mutate := range mutations {
		mutated := base
		mutate(&mutated)
		if Fingerprint(mutated) == baseline {
			t.Errorf("changing %s did not change the fingerprint", field)
		}
	}

	identical := sampleRequest()
	if Fingerprint(identical) != baseline {
		t.Fatal("identical requests must share a fingerprint")
	}
}

func TestFingerprintNotPrefixBased(t *testing.T) {
	a := sampleRequest()
	b := sampleRequest()
	// Same prefix, different tail: a naive substring scheme would collide.
	a.Image.Base64 = "QUFBQUFBQUFBQUFBQUFBQQ=="
	b.Image.Base64 = "QUFBQUFBQUFBQUFBQUFBQg=="
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatal("fingerprints collided for payloads sharing a prefix")
	}
}

package image

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"server/internal/domain"

	"github.com/rs/zerolog"
)

func TestPollinationsGenerateReturnsImageBytes(t *testing.T) {
	imageBytes := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(imageBytes)
	}))
	defer server.Close()

	provider := NewPollinations(PollinationsOptions{
		BaseURL: server.URL + "/prompt/",
		Logger:  zerolog.Nop(),
	})

	req := testRequest()
	req.Prompt = "studio portrait, soft light"
	req.Seed = 42

	result, err := provider.Generate(context.Background(), req, discardProgress)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(result.Data, imageBytes) {
		t.Fatalf("data = %v", result.Data)
	}
	if result.Format != "jpeg" {
		t.Fatalf("format = %q", result.Format)
	}
	if !strings.Contains(gotPath, "studio%20portrait") {
		t.Fatalf("prompt not path-escaped into URL: %q", gotPath)
	}
	for _, param := range []string{"width=512", "height=768", "seed=42", "nologo=true"} {
		if !strings.Contains(gotQuery, param) {
			t.Errorf("query missing %q: %q", param, gotQuery)
		}
	}
}

func TestPollinationsServerErrorIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewPollinations(PollinationsOptions{
		BaseURL: server.URL + "/prompt/",
		Logger:  zerolog.Nop(),
	})

	_, err := provider.Generate(context.Background(), testRequest(), discardProgress)
	if class := domain.ClassOf(err); class != domain.ErrClassProvider {
		t.Fatalf("class = %q, want provider (err=%v)", class, err)
	}
}

func TestPollinationsSendsBearerWhenKeyConfigured(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 0x50})
	}))
	defer server.Close()

	provider := NewPollinations(PollinationsOptions{
		BaseURL: server.URL + "/prompt/",
		APIKey:  "pk-1",
		Logger:  zerolog.Nop(),
	})
	if _, err := provider.Generate(context.Background(), testRequest(), discardProgress); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer pk-1" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}

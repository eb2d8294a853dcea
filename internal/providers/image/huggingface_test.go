package image

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"

	"github.com/rs/zerolog"
)

func TestHuggingFaceGenerateForwardsProfileParameters(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4E, 0x47}
	var gotPath string
	var gotPayload huggingFacePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(imageBytes)
	}))
	defer server.Close()

	provider := NewHuggingFace(HuggingFaceOptions{
		BaseURL: server.URL,
		APIKey:  "hf-key",
		Logger:  zerolog.Nop(),
	})

	result, err := provider.Generate(context.Background(), testRequest(), discardProgress)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(result.Data, imageBytes) {
		t.Fatalf("data = %v", result.Data)
	}
	if result.Format != "png" {
		t.Fatalf("format = %q", result.Format)
	}
	if gotPath != "/test-model" {
		t.Fatalf("path = %q, want model id appended", gotPath)
	}
	if gotPayload.Inputs != "portrait" {
		t.Fatalf("inputs = %q", gotPayload.Inputs)
	}
	if gotPayload.Parameters.NumInferenceSteps != 20 || gotPayload.Parameters.Width != 512 {
		t.Fatalf("parameters = %+v", gotPayload.Parameters)
	}
}

func TestHuggingFaceMissingKeyIsAuthError(t *testing.T) {
	provider := NewHuggingFace(HuggingFaceOptions{Logger: zerolog.Nop()})
	_, err := provider.Generate(context.Background(), testRequest(), discardProgress)
	if class := domain.ClassOf(err); class != domain.ErrClassAuthentication {
		t.Fatalf("class = %q, want authentication (err=%v)", class, err)
	}
}

func TestHuggingFaceEmptyBodyIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := NewHuggingFace(HuggingFaceOptions{
		BaseURL: server.URL,
		APIKey:  "hf-key",
		Logger:  zerolog.Nop(),
	})
	_, err := provider.Generate(context.Background(), testRequest(), discardProgress)
	if class := domain.ClassOf(err); class != domain.ErrClassProvider {
		t.Fatalf("class = %q, want provider (err=%v)", class, err)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   domain.ErrorClass
	}{
		{http.StatusUnauthorized, domain.ErrClassAuthentication},
		{http.StatusForbidden, domain.ErrClassAuthentication},
		{http.StatusTooManyRequests, domain.ErrClassProvider},
		{http.StatusBadGateway, domain.ErrClassProvider},
	}
	for _, tt := range tests {
		err := classifyStatus("test", tt.status, []byte("detail"))
		if class := domain.ClassOf(err); class != tt.want {
			t.Errorf("status %d: class = %q, want %q", tt.status, class, tt.want)
		}
	}
}

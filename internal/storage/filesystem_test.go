package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreWriteAndResolve(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key, err := store.Write(context.Background(), "portraits/abc.jpg", []byte("img"))
	if err != nil {
		t.Fatal(err)
	}
	if key != "portraits/abc.jpg" {
		t.Fatalf("key = %q", key)
	}

	data, err := os.ReadFile(filepath.Join(store.BasePath(), "portraits", "abc.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "img" {
		t.Fatalf("data = %q", data)
	}

	if got := ResolveURL("/static/", key); got != "/static/portraits/abc.jpg" {
		t.Fatalf("url = %q", got)
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{"plain", "a.jpg", "a.jpg", false},
		{"nested", "portraits/a.jpg", "portraits/a.jpg", false},
		{"leading slash", "/portraits/a.jpg", "portraits/a.jpg", false},
		{"dot prefix", "./a.jpg", "a.jpg", false},
		{"backslashes", `portraits\a.jpg`, "portraits/a.jpg", false},
		{"traversal", "../../etc/passwd", "", true},
		{"embedded traversal resolving outside", "portraits/../../a.jpg", "", true},
		{"empty", "  ", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sanitizeKey(tc.key)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}

func TestWriteRejectsCanceledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Write(ctx, "a.jpg", []byte("img")); err == nil {
		t.Fatal("expected a context error")
	}
}

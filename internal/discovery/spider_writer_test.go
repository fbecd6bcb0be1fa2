package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"formprobe/internal/models"
)

func TestSpiderWriter(t *testing.T) {
	file := filepath.Join(t.TempDir(), "spider.txt")
	w, err := NewSpiderWriter(file)
	if err != nil {
		t.Fatalf("NewSpiderWriter() error: %v", err)
	}

	err = w.ObservePage(Page{
		URL:    "http://example.test/",
		Status: 200,
		Links:  []string{"http://example.test/about"},
		Forms: []models.Endpoint{{
			Action: "http://example.test/search",
			Method: "GET",
			Inputs: []models.Input{{Name: "q", Type: "text"}},
		}},
	})
	if err != nil {
		t.Fatalf("ObservePage() error: %v", err)
	}
	if err := w.ObservePage(Page{URL: "http://example.test/down", Err: errors.New("timeout")}); err != nil {
		t.Fatalf("ObservePage() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		"GET http://example.test/ [200]",
		"GET http://example.test/search",
		"q (text)",
		"http://example.test/about",
		"Error: timeout",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("journal missing %q:\n%s", want, out)
		}
	}
}

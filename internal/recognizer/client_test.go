package recognizer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRecognizeDecodesCandidates(t *testing.T) {
	var gotAuth, gotField string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("upload"); err == nil {
			gotField = "upload"
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"processing_time": 42.5, "results": [{"plate": "kxj842", "score": 0.903}, {"plate": "kxj84z", "score": 0.61}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", 5*time.Second, zerolog.Nop())

	rec, err := client.Recognize(context.Background(), strings.NewReader("image bytes"), "car.jpg")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if gotAuth != "Token test-token" {
		t.Errorf("Authorization = %q, want token header", gotAuth)
	}
	if gotField != "upload" {
		t.Errorf("multipart field %q, want upload", gotField)
	}

	if len(rec.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(rec.Results))
	}
	if rec.Results[0].Plate != "kxj842" || rec.Results[0].Score != 0.903 {
		t.Errorf("top result = %+v", rec.Results[0])
	}
	if len(rec.Raw) == 0 {
		t.Errorf("raw response body not preserved")
	}
}

func TestRecognizeEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", 5*time.Second, zerolog.Nop())

	rec, err := client.Recognize(context.Background(), strings.NewReader("x"), "car.jpg")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(rec.Results) != 0 {
		t.Errorf("expected zero candidates, got %d", len(rec.Results))
	}
}

func TestRecognizeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail": "token invalid"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad-token", 5*time.Second, zerolog.Nop())

	_, err := client.Recognize(context.Background(), strings.NewReader("x"), "car.jpg")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if upstream.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", upstream.StatusCode)
	}
	if !strings.Contains(upstream.Body, "token invalid") {
		t.Errorf("body %q does not carry upstream diagnostics", upstream.Body)
	}
}

func TestRecognizeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, "test-token", time.Second, zerolog.Nop())

	_, err := client.Recognize(context.Background(), strings.NewReader("x"), "car.jpg")
	if err == nil {
		t.Fatal("expected transport error")
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		t.Errorf("transport failure should not be an UpstreamError")
	}
}

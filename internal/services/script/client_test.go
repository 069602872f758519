package script_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/services"
	"clipforge/internal/services/script"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *script.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return script.NewClient(config.LLM{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	}, script.WithHTTPClient(srv.Client()))
}

func TestGenerateReturnsScript(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  A cold wind crossed the server room.  "}}]}`))
	})

	got, err := client.Generate(context.Background(), "abandoned data center", "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "A cold wind crossed the server room." {
		t.Fatalf("unexpected script: %q", got)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Fatalf("unexpected model in request: %v", gotBody["model"])
	}
}

func TestGenerateRejectsEmptyTopic(t *testing.T) {
	client := script.NewClient(config.LLM{APIKey: "k", BaseURL: "http://unused"})

	_, err := client.Generate(context.Background(), "   ", "horror")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	client := script.NewClient(config.LLM{BaseURL: "http://unused"})

	_, err := client.Generate(context.Background(), "topic", "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGenerateNonOKStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.Generate(context.Background(), "topic", "")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Generate(context.Background(), "topic", "")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

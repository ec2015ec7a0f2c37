package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() should fail without an API key")
	}
}

func TestSummarizeTable(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Messages) > 0 {
			gotPrompt = req.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" The east region runs 40 servers. "}}]}`))
	}))
	defer server.Close()

	s, err := New(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	summary, err := s.SummarizeTable(context.Background(), "Region\tServers\nEast\t40")
	if err != nil {
		t.Fatalf("SummarizeTable() error = %v", err)
	}

	if summary != "The east region runs 40 servers." {
		t.Errorf("summary = %q, want trimmed model output", summary)
	}
	if !strings.Contains(gotPrompt, "East\t40") {
		t.Errorf("prompt should contain the table text, got %q", gotPrompt)
	}
}

func TestSummarizeTable_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusBadRequest)
	}))
	defer server.Close()

	s, err := New(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := s.SummarizeTable(context.Background(), "Region"); err == nil {
		t.Error("SummarizeTable() should surface API errors")
	}
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestGroqProviderComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected auth header, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req groqRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("expected single user message, got %+v", req.Messages)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"is_question\": true}"}}]}`)
	}))
	defer server.Close()

	provider := NewGroqProvider(Config{
		APIURL: server.URL,
		APIKey: "test-key",
		Model:  "test-model",
	})

	out, err := provider.Complete(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"is_question": true}` {
		t.Fatalf("unexpected content %q", out)
	}
}

func TestGroqProviderRetriesRateLimit(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer server.Close()

	provider := NewGroqProvider(Config{
		APIURL:     server.URL,
		Model:      "test-model",
		MaxRetries: 3,
	})

	out, err := provider.Complete(context.Background(), "hi")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected content %q", out)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestGroqProviderErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"bad model"}`)
	}))
	defer server.Close()

	provider := NewGroqProvider(Config{APIURL: server.URL, Model: "test-model"})

	if _, err := provider.Complete(context.Background(), "hi"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestGroqProviderRequiresModel(t *testing.T) {
	t.Parallel()

	provider := NewGroqProvider(Config{})
	if _, err := provider.Complete(context.Background(), "hi"); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestNewProviderSelection(t *testing.T) {
	t.Parallel()

	if _, err := NewProvider(Config{Provider: "groq", Model: "m"}); err != nil {
		t.Fatalf("groq: %v", err)
	}
	if _, err := NewProvider(Config{Provider: "ollama"}); err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if _, err := NewProvider(Config{Provider: "watson"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

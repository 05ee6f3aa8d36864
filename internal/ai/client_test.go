package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/market-service/internal/config"
)

type fakeCompletions struct {
	mu       sync.Mutex
	requests []chatRequest
	replies  []string
	status   int
}

func (f *fakeCompletions) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		f.mu.Lock()
		f.requests = append(f.requests, req)
		n := len(f.requests)
		f.mu.Unlock()

		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		reply := f.replies[0]
		if n <= len(f.replies) {
			reply = f.replies[n-1]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		})
	}
}

func newTestClient(t *testing.T, fake *fakeCompletions) *Client {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	return NewClient(config.AIConfig{
		APIKey:        "test-key",
		BaseURL:       server.URL,
		Model:         "primary-model",
		FallbackModel: "fallback-model",
	}, zap.NewNop())
}

func TestGenerateSalePostSplitsTitleAndBody(t *testing.T) {
	fake := &fakeCompletions{replies: []string{"Sturdy oak desk\nBarely used.\nPickup only."}}
	client := newTestClient(t, fake)

	post, err := client.GenerateSalePost(context.Background(), GenerateInput{
		Title: "desk",
		Price: 30000,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if post.Title != "Sturdy oak desk" {
		t.Fatalf("title = %q", post.Title)
	}
	if post.Body != "Barely used.\nPickup only." {
		t.Fatalf("body = %q", post.Body)
	}
	if len(fake.requests) != 1 || fake.requests[0].Model != "primary-model" {
		t.Fatalf("requests = %+v", fake.requests)
	}
}

func TestGenerateSalePostRetriesRefusalOnFallback(t *testing.T) {
	fake := &fakeCompletions{replies: []string{
		"I'm sorry, I cannot help with that.",
		"Vintage lamp\nWorks perfectly.",
	}}
	client := newTestClient(t, fake)

	post, err := client.GenerateSalePost(context.Background(), GenerateInput{Title: "lamp"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if post.Title != "Vintage lamp" {
		t.Fatalf("title = %q", post.Title)
	}
	if len(fake.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(fake.requests))
	}
	if fake.requests[1].Model != "fallback-model" {
		t.Fatalf("retry model = %q", fake.requests[1].Model)
	}
}

func TestGenerateSalePostAttachesImage(t *testing.T) {
	fake := &fakeCompletions{replies: []string{"Red bicycle\nGood brakes."}}
	client := newTestClient(t, fake)

	_, err := client.GenerateSalePost(context.Background(), GenerateInput{
		Title:       "bicycle",
		ImageBase64: "aGVsbG8=",
		ImageMime:   "image/png",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	raw, _ := json.Marshal(fake.requests[0].Messages[1].Content)
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		t.Fatalf("user content is not parts: %v", err)
	}
	if len(parts) != 2 || parts[1].ImageURL == nil {
		t.Fatalf("parts = %+v", parts)
	}
	if parts[1].ImageURL.URL != "data:image/png;base64,aGVsbG8=" {
		t.Fatalf("image url = %q", parts[1].ImageURL.URL)
	}
}

func TestGenerateSalePostRequiresAPIKey(t *testing.T) {
	client := NewClient(config.AIConfig{}, zap.NewNop())
	if _, err := client.GenerateSalePost(context.Background(), GenerateInput{}); err == nil {
		t.Fatal("missing key accepted")
	}
}

func TestGenerateSalePostEndpointFailure(t *testing.T) {
	fake := &fakeCompletions{status: http.StatusInternalServerError, replies: []string{""}}
	client := newTestClient(t, fake)

	if _, err := client.GenerateSalePost(context.Background(), GenerateInput{Title: "x"}); err == nil {
		t.Fatal("server error not propagated")
	}
}

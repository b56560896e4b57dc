package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/leadscan/internal/lead"
	"github.com/jackzampolin/leadscan/internal/providers"
)

type stubEncoder struct {
	err error
}

func (s stubEncoder) ForTransmission(path string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("jpeg:" + path), nil
}

// twoStage scripts the describe and structure responses.
func twoStage(describe, structure string) *providers.MockClient {
	m := providers.NewMockClient()
	m.Respond = func(n int, req *providers.ChatRequest) (string, error) {
		if len(req.Messages[0].Images) > 0 {
			return describe, nil
		}
		return structure, nil
	}
	return m
}

func newTestClient(t *testing.T, llm providers.LLMClient, timeout time.Duration) *Client {
	t.Helper()
	c, err := New(llm, Config{Encoder: stubEncoder{}, Timeout: timeout})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	if _, err := New(nil, Config{Encoder: stubEncoder{}}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if _, err := New(providers.NewMockClient(), Config{}); err == nil {
		t.Error("expected error without encoder")
	}
}

func TestExtractPage(t *testing.T) {
	page := lead.Page{Index: 0, Path: "/tmp/page_0001.png"}

	t.Run("two stage flow", func(t *testing.T) {
		llm := twoStage(
			"Jane Smith, CTO at Acme Inc. jane@acme.com",
			`Here are the leads:
[{"name": "Jane Smith", "company": "Acme Inc", "title": "CTO", "email": "jane@acme.com",
  "phone": null, "social_media": {"linkedin": "janesmith", "twitter": null}, "extra": 42}]
Hope this helps!`,
		)
		c := newTestClient(t, llm, time.Second)

		leads, err := c.ExtractPage(context.Background(), page)
		if err != nil {
			t.Fatalf("ExtractPage() error = %v", err)
		}
		if len(leads) != 1 {
			t.Fatalf("len(leads) = %d, want 1", len(leads))
		}
		got := leads[0]
		if got.Name != "Jane Smith" || got.Email != "jane@acme.com" || got.Phone != "" {
			t.Errorf("lead = %+v", got)
		}
		if got.SocialMedia["linkedin"] != "janesmith" || len(got.SocialMedia) != 1 {
			t.Errorf("SocialMedia = %v", got.SocialMedia)
		}

		reqs := llm.Requests()
		if len(reqs) != 2 {
			t.Fatalf("expected 2 model calls, got %d", len(reqs))
		}
		if len(reqs[0].Messages[0].Images) != 1 {
			t.Error("first call should carry the page image")
		}
		if !strings.Contains(reqs[1].Messages[0].Content, "Jane Smith, CTO at Acme Inc.") {
			t.Error("second call should embed the extracted text")
		}
	})

	t.Run("unparsable response yields empty list", func(t *testing.T) {
		c := newTestClient(t, twoStage("text", "I could not find any leads, sorry."), time.Second)
		leads, err := c.ExtractPage(context.Background(), page)
		if err != nil {
			t.Fatalf("ExtractPage() error = %v", err)
		}
		if leads == nil || len(leads) != 0 {
			t.Errorf("leads = %#v, want empty non-nil", leads)
		}
	})

	t.Run("non-array json yields empty list", func(t *testing.T) {
		c := newTestClient(t, twoStage("text", `{"name": "Jane"}`), time.Second)
		leads, err := c.ExtractPage(context.Background(), page)
		if err != nil || len(leads) != 0 {
			t.Errorf("leads = %v, err = %v", leads, err)
		}
	})

	t.Run("non-object items are skipped", func(t *testing.T) {
		c := newTestClient(t, twoStage("text", `[{"name": "Ok"}, "junk", 7, null, {}]`), time.Second)
		leads, err := c.ExtractPage(context.Background(), page)
		if err != nil {
			t.Fatalf("ExtractPage() error = %v", err)
		}
		// {} is a valid, empty lead; remote results are not filtered.
		if len(leads) != 2 || leads[0].Name != "Ok" {
			t.Errorf("leads = %+v", leads)
		}
	})

	t.Run("loosely typed fields are coerced", func(t *testing.T) {
		c := newTestClient(t, twoStage("text",
			`[{"name": "Jane Smith", "email": "jane@acme.com", "phone": 4155551234,
			  "social_media": ["@jane"], "title": ["CTO"], "industry": true}]`), time.Second)
		leads, err := c.ExtractPage(context.Background(), page)
		if err != nil {
			t.Fatalf("ExtractPage() error = %v", err)
		}
		if len(leads) != 1 {
			t.Fatalf("len(leads) = %d, want 1", len(leads))
		}
		got := leads[0]
		if got.Name != "Jane Smith" || got.Email != "jane@acme.com" {
			t.Errorf("lead = %+v", got)
		}
		if got.Phone != "4155551234" {
			t.Errorf("Phone = %q, want 4155551234", got.Phone)
		}
		if got.SocialMedia != nil || got.Title != "" || got.Industry != "true" {
			t.Errorf("coerced fields = %+v", got)
		}
	})

	t.Run("numeric social handles are kept", func(t *testing.T) {
		c := newTestClient(t, twoStage("text", `[{"name": "Bo Li", "social_media": {"twitter": "@bo", "id": 12.5, "x": {}}}]`), time.Second)
		leads, err := c.ExtractPage(context.Background(), page)
		if err != nil || len(leads) != 1 {
			t.Fatalf("leads = %v, err = %v", leads, err)
		}
		sm := leads[0].SocialMedia
		if sm["twitter"] != "@bo" || sm["id"] != "12.5" || len(sm) != 2 {
			t.Errorf("SocialMedia = %v", sm)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		llm := providers.NewMockClient()
		llm.Latency = time.Second
		c := newTestClient(t, llm, 20*time.Millisecond)

		_, err := c.ExtractPage(context.Background(), page)
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if !IsFallback(err) {
			t.Error("timeout should trigger fallback")
		}
	})

	t.Run("service error", func(t *testing.T) {
		llm := providers.NewMockClient()
		llm.Err = &providers.StatusError{Provider: "mock", StatusCode: 502, Body: "bad gateway"}
		c := newTestClient(t, llm, time.Second)

		_, err := c.ExtractPage(context.Background(), page)
		if !errors.Is(err, ErrService) {
			t.Fatalf("expected ErrService, got %v", err)
		}
		var statusErr *providers.StatusError
		if !errors.As(err, &statusErr) {
			t.Error("cause should remain inspectable")
		}
	})

	t.Run("encoder failure is a service error", func(t *testing.T) {
		c, err := New(providers.NewMockClient(), Config{Encoder: stubEncoder{err: errors.New("bad image")}})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.ExtractPage(context.Background(), page); !errors.Is(err, ErrService) {
			t.Errorf("expected ErrService, got %v", err)
		}
	})

	t.Run("caller cancellation is not a fallback", func(t *testing.T) {
		llm := providers.NewMockClient()
		llm.Latency = time.Second
		c := newTestClient(t, llm, time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.ExtractPage(ctx, page)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if IsFallback(err) {
			t.Error("cancellation should not trigger fallback")
		}
	})
}

func TestExtractPage_OverHTTP(t *testing.T) {
	page := lead.Page{Path: "page.png"}

	t.Run("empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id": "x", "choices": []}`))
		}))
		defer server.Close()

		llm, err := providers.NewOpenRouterClient(providers.OpenRouterConfig{APIKey: "k", BaseURL: server.URL, MaxRetries: -1})
		if err != nil {
			t.Fatal(err)
		}
		_, err = newTestClient(t, llm, time.Second).ExtractPage(context.Background(), page)
		if !errors.Is(err, ErrService) {
			t.Errorf("expected ErrService, got %v", err)
		}
	})

	t.Run("slow server times out", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		llm, err := providers.NewOpenRouterClient(providers.OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
		if err != nil {
			t.Fatal(err)
		}
		_, err = newTestClient(t, llm, 50*time.Millisecond).ExtractPage(context.Background(), page)
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("successful round trip", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req map[string]any
			json.NewDecoder(r.Body).Decode(&req)
			content := "Bob Jones bob@corp.com"
			if msgs := req["messages"].([]any); len(msgs) > 0 {
				if _, isText := msgs[0].(map[string]any)["content"].(string); isText {
					content = `[{"name": "Bob Jones", "email": "bob@corp.com"}]`
				}
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id":      "x",
				"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
			})
		}))
		defer server.Close()

		llm, err := providers.NewOpenRouterClient(providers.OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
		if err != nil {
			t.Fatal(err)
		}
		leads, err := newTestClient(t, llm, time.Second).ExtractPage(context.Background(), page)
		if err != nil {
			t.Fatalf("ExtractPage() error = %v", err)
		}
		if len(leads) != 1 || leads[0].Email != "bob@corp.com" {
			t.Errorf("leads = %+v", leads)
		}
	})
}

func TestExtractArray(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`[1,2]`, `[1,2]`},
		{"prefix [1] suffix", "[1]"},
		{"a [1] b [2] c", "[1] b [2]"},
		{"no brackets", "no brackets"},
		{"] backwards [", "] backwards ["},
	}
	for _, tt := range tests {
		if got := extractArray(tt.in); got != tt.want {
			t.Errorf("extractArray(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPing(t *testing.T) {
	llm := providers.NewMockClient()
	c := newTestClient(t, llm, time.Second)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	llm.Err = errors.New("down")
	if err := c.Ping(context.Background()); !errors.Is(err, ErrService) {
		t.Errorf("expected ErrService, got %v", err)
	}
}

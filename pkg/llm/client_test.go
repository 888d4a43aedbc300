package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/recorder"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-test",
		"model": "gpt-4o-mini",
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
	}
}

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{WithSleeper(func(time.Duration) {})}, opts...)
	return NewClient(Config{APIKey: "sk-test", ProviderURL: url, Model: "gpt-4o-mini"}, opts...)
}

func TestCompleteJSON(t *testing.T) {
	var got chatCompletionRequest
	var rawMessages []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ChatCompletionsPath {
			t.Errorf("path = %s, want %s", r.URL.Path, ChatCompletionsPath)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("authorization = %q", auth)
		}
		var body struct {
			chatCompletionRequest
			Messages []map[string]any `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		got = body.chatCompletionRequest
		rawMessages = body.Messages
		json.NewEncoder(w).Encode(completion(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.CompleteJSON(context.Background(), Request{
		Flow:   "test_flow",
		System: "You answer in JSON.",
		User:   "Say ok.",
	})
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if resp.RunID == "" {
		t.Error("missing run id")
	}
	if resp.Content != `{"ok":true}` {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Tokens.Total != 20 {
		t.Errorf("tokens = %d, want 20", resp.Tokens.Total)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", got.Model)
	}
	if got.ResponseFormat["type"] != "json_object" {
		t.Errorf("response_format = %v", got.ResponseFormat)
	}
	if len(rawMessages) != 2 || rawMessages[0]["role"] != "system" || rawMessages[1]["content"] != "Say ok." {
		t.Errorf("messages = %v", rawMessages)
	}
}

func TestCompleteJSONValidation(t *testing.T) {
	client := NewClient(Config{APIKey: "sk-test"})
	tests := []struct {
		name string
		req  Request
	}{
		{"no system", Request{User: "u"}},
		{"no user", Request{System: "s", User: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.CompleteJSON(context.Background(), tt.req); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	noKey := NewClient(Config{})
	if _, err := noKey.CompleteJSON(context.Background(), Request{System: "s", User: "u"}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestCompleteJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		json.NewEncoder(w).Encode(completion(`{"ok":true}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	rec, _ := recorder.NewWriter(dir)
	client := newTestClient(server.URL, WithRecorder(rec))

	resp, err := client.CompleteJSON(context.Background(), Request{Flow: "retry", System: "s", User: "u"})
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}

	loaded, err := recorder.Load(rec.Path(resp.RunID))
	if err != nil {
		t.Fatalf("load run record: %v", err)
	}
	if loaded.Attempts != 3 || loaded.Status != "success" || loaded.Flow != "retry" {
		t.Errorf("record = %+v", loaded)
	}
	if loaded.Provider != "openai" {
		t.Errorf("provider = %q, want openai", loaded.Provider)
	}
}

func TestCompleteJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	rec, _ := recorder.NewWriter(dir)
	client := newTestClient(server.URL, WithRecorder(rec))

	resp, err := client.CompleteJSON(context.Background(), Request{Flow: "auth", System: "s", User: "u"})
	if err == nil {
		t.Fatal("expected error")
	}
	if StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", StatusCode(err))
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}

	loaded, err := recorder.Load(rec.Path(resp.RunID))
	if err != nil {
		t.Fatalf("load run record: %v", err)
	}
	if loaded.Status != "error" || loaded.Error == "" {
		t.Errorf("record status=%q error=%q", loaded.Status, loaded.Error)
	}
}

func TestCompleteJSONGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(completion(""))
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithRetryMaxAttempts(2))
	_, err := client.CompleteJSON(context.Background(), Request{System: "s", User: "u"})
	if err == nil {
		t.Fatal("expected error")
	}
	var empty *emptyContentError
	if !errors.As(err, &empty) {
		t.Fatalf("err = %v, want emptyContentError", err)
	}
	if !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Errorf("err = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestCompleteJSONCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL)
	if _, err := client.CompleteJSON(ctx, Request{System: "s", User: "u"}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestCompleteJSONAttachments(t *testing.T) {
	var parts []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.Unmarshal(body.Messages[1].Content, &parts)
		json.NewEncoder(w).Encode(completion(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CompleteJSON(context.Background(), Request{
		System: "s",
		User:   "compare these",
		Files:  []string{"data:text/plain;base64,aGVsbG8gd29ybGQ=", "data:image/png;base64,iVBORw0KGgo="},
	})
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("parts = %v", parts)
	}
	if parts[0]["type"] != "text" || parts[1]["type"] != "file" || parts[2]["type"] != "image_url" {
		t.Errorf("part types = %v, %v, %v", parts[0]["type"], parts[1]["type"], parts[2]["type"])
	}
}

func TestCompleteJSONBadAttachment(t *testing.T) {
	client := NewClient(Config{APIKey: "sk-test"})
	_, err := client.CompleteJSON(context.Background(), Request{System: "s", User: "u", Files: []string{"not a uri"}})
	if !errors.Is(err, ErrInvalidDataURI) {
		t.Fatalf("err = %v, want ErrInvalidDataURI", err)
	}
}

func TestParseDataURI(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		mime string
		ok   bool
	}{
		{"text", "data:text/plain;base64,aGk=", "text/plain", true},
		{"pdf upper", "data:Application/PDF;base64,JVBERi0=", "application/pdf", true},
		{"missing prefix", "text/plain;base64,aGk=", "", false},
		{"not base64", "data:text/plain,hi", "", false},
		{"missing mime", "data:;base64,aGk=", "", false},
		{"bad payload", "data:text/plain;base64,@@@", "", false},
		{"empty payload", "data:text/plain;base64,", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDataURI(tt.uri)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if tt.ok && d.MIMEType != tt.mime {
				t.Errorf("mime = %q, want %q", d.MIMEType, tt.mime)
			}
		})
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ok      bool
	}{
		{"plain", `{"score":0.5}`, true},
		{"fenced", "```json\n{\"score\":0.5}\n```", true},
		{"prose", "Here is the result: {\"score\":0.5} hope it helps", true},
		{"empty", "  ", false},
		{"garbage", "no json here", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Score float64 `json:"score"`
			}
			err := DecodeLLMJSON(tt.content, &out)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if tt.ok && out.Score != 0.5 {
				t.Errorf("score = %v", out.Score)
			}
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	c := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := c.backoffDelay(i + 1); got != w {
			t.Errorf("attempt %d: delay = %s, want %s", i+1, got, w)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Errorf("parseRetryAfter(3) = %s, %v", d, ok)
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Error("expected empty header to be rejected")
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Error("expected negative seconds to be rejected")
	}
}

func TestInferProvider(t *testing.T) {
	tests := []struct {
		model, url, want string
	}{
		{"gpt-4o-mini", "", "openai"},
		{"o3-mini", "", "openai"},
		{"claude-3-5-sonnet", "", "anthropic"},
		{"gemini-1.5-pro", "", "google"},
		{"mixtral-8x7b", "", "mistral"},
		{"llama-3.1-70b", "", "meta"},
		{"deepseek-chat", "", "deepseek"},
		{"custom", "https://openrouter.ai/api", "openrouter"},
		{"custom", "http://localhost:11434", "local"},
		{"custom", "https://example.com", "unknown"},
	}
	for _, tt := range tests {
		if got := InferProvider(tt.model, tt.url); got != tt.want {
			t.Errorf("InferProvider(%q, %q) = %q, want %q", tt.model, tt.url, got, tt.want)
		}
	}
}

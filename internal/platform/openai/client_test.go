package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

func assistantJSON(text string) string {
	b, _ := json.Marshal(map[string]any{
		"output": []any{
			map[string]any{
				"type": "message",
				"role": "assistant",
				"content": []any{
					map[string]any{"type": "output_text", "text": text},
				},
			},
		},
		"usage": map[string]any{"input_tokens": 10, "output_tokens": 5},
	})
	return string(b)
}

func newTestClient(t *testing.T, url string, retries int) *client {
	t.Helper()
	temp := 0.5
	c, err := NewClient(logger.Nop(), Config{APIKey: "k", BaseURL: url, MaxRetries: retries, Temperature: &temp})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	cc := c.(*client)
	cc.sleep = func(time.Duration) {}
	return cc
}

func TestNewClientWithoutKey(t *testing.T) {
	_, err := NewClient(logger.Nop(), Config{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGenerateJSONSendsStrictSchema(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("unexpected auth header %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = io.WriteString(w, assistantJSON(`{"phrase":"Reel Talk"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	obj, err := c.GenerateJSON(context.Background(), "sys", "user", "phrase_v1", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if obj["phrase"] != "Reel Talk" {
		t.Fatalf("unexpected obj %v", obj)
	}
	format := body["text"].(map[string]any)["format"].(map[string]any)
	if format["name"] != "phrase_v1" || format["strict"] != true {
		t.Fatalf("unexpected format %v", format)
	}
	input := body["input"].([]any)
	sys := input[0].(map[string]any)["content"].(string)
	if !strings.Contains(sys, "MERCH_PROMPT_STYLE_V1") {
		t.Fatalf("expected prompt style marker in system prompt")
	}
}

func TestRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, assistantJSON("hello"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	text, err := c.GenerateText(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "hello" || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("text=%q calls=%d", text, calls)
	}
}

func TestDoesNotRetryBadRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"bad"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	if _, err := c.GenerateText(context.Background(), "sys", "user"); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestDropsRejectedTemperature(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		raw, _ := io.ReadAll(r.Body)
		if strings.Contains(string(raw), `"temperature"`) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"Unsupported parameter: 'temperature'"}}`)
			return
		}
		_, _ = io.WriteString(w, assistantJSON("ok"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	text, err := c.GenerateText(context.Background(), "sys", "user")
	if err != nil || text != "ok" {
		t.Fatalf("text=%q err=%v", text, err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestGenerateJSONWithImagesSendsInputImage(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, assistantJSON(`{"typography":"script"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.GenerateJSONWithImages(context.Background(), "sys", "describe",
		[]ImageInput{{ImageURL: "https://img.example/a.png", Detail: "low"}},
		"style_v1", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("GenerateJSONWithImages: %v", err)
	}
	if !strings.Contains(string(raw), `"input_image"`) || !strings.Contains(string(raw), "https://img.example/a.png") {
		t.Fatalf("expected image content in request: %s", raw)
	}
}

func TestMalformedJSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, assistantJSON("not json"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	if _, err := c.GenerateJSON(context.Background(), "s", "u", "x", map[string]any{}); err == nil {
		t.Fatalf("expected parse error")
	}
}

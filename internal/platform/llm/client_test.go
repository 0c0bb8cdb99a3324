package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func completionBody(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q},"finish_reason":"stop"}]}`, content)
}

func TestCompleteSendsChatCompletionRequest(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, completionBody("hello back"))
	}))
	defer server.Close()

	c := NewClient(testLogger(t), Config{Provider: "openai", BaseURL: server.URL, APIKey: "test-key"})
	out, err := c.Complete(context.Background(), Request{
		Model:    "gpt-4o",
		System:   "be terse",
		User:     "hello",
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello back" {
		t.Fatalf("unexpected output %q", out)
	}
	if got["model"] != "gpt-4o" {
		t.Fatalf("model not sent: %v", got["model"])
	}
	messages := got["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(messages))
	}
	format := got["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("json mode not requested: %v", format)
	}
}

func TestCompleteEncodesMediaAsDataURL(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, completionBody("transcribed"))
	}))
	defer server.Close()

	c := NewClient(testLogger(t), Config{Provider: "openai", BaseURL: server.URL, APIKey: "k"})
	_, err := c.Complete(context.Background(), Request{
		Model: "gpt-4o",
		User:  "transcribe this",
		Media: []MediaInput{{MimeType: "image/png", Data: []byte{1, 2, 3}}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	messages := got["messages"].([]any)
	user := messages[0].(map[string]any)
	parts := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected text + image parts, got %d", len(parts))
	}
	img := parts[1].(map[string]any)["image_url"].(map[string]any)
	url := img["url"].(string)
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("media not sent as data URL: %q", url)
	}
}

func TestCompleteSurfacesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer server.Close()

	c := NewClient(testLogger(t), Config{Provider: "openai", BaseURL: server.URL, APIKey: "k"})
	_, err := c.Complete(context.Background(), Request{Model: "gpt-4o", User: "hi"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.HTTPStatusCode() != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", httpErr.StatusCode)
	}
}

func TestCompleteDoesNotRetryInvalidModel(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"message":"The model 'gpt-99' does not exist"}}`)
	}))
	defer server.Close()

	c := NewClient(testLogger(t), Config{Provider: "openai", BaseURL: server.URL, APIKey: "k", MaxRetries: 3})
	_, err := c.Complete(context.Background(), Request{Model: "gpt-99", User: "hi"})
	if !IsInvalidModelError(err) {
		t.Fatalf("expected invalid-model error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("invalid-model rejections must not retry, got %d calls", calls)
	}
}

func TestIsInvalidModelError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&HTTPError{StatusCode: 404, Body: "The model does not exist"}, true},
		{&HTTPError{StatusCode: 400, Body: "unknown model gpt-x"}, true},
		{&HTTPError{StatusCode: 400, Body: "model_not_found"}, true},
		{&HTTPError{StatusCode: 500, Body: "model does not exist"}, false},
		{&HTTPError{StatusCode: 400, Body: "invalid temperature"}, false},
		{errors.New("dial tcp: refused"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsInvalidModelError(tc.err); got != tc.want {
			t.Fatalf("IsInvalidModelError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestCompleteRequiresModel(t *testing.T) {
	c := NewClient(testLogger(t), Config{Provider: "openai", BaseURL: "http://unused", APIKey: "k"})
	if _, err := c.Complete(context.Background(), Request{User: "hi"}); err == nil {
		t.Fatalf("expected error for missing model")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	c := NewClient(testLogger(t), Config{Provider: "openai", BaseURL: server.URL, APIKey: "k"})
	if _, err := c.Complete(context.Background(), Request{Model: "gpt-4o", User: "hi"}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

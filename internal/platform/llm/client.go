package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/studyforge/studyforge-backend/internal/pkg/ctxutil"
	"github.com/studyforge/studyforge-backend/internal/pkg/envutil"
	"github.com/studyforge/studyforge-backend/internal/pkg/httpx"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
)

// MediaInput is inline multimodal input, sent as a base64 data URL.
type MediaInput struct {
	MimeType string
	Data     []byte
}

// Request is one chat-completion call. Model is the concrete provider model
// id resolved by the selection policy, never an alias.
type Request struct {
	Model       string
	System      string
	User        string
	Media       []MediaInput
	JSONMode    bool
	Temperature *float64
	MaxTokens   int
}

// Client is a stateless chat-completion capability for one provider. It is
// constructed once from configuration and passed explicitly into generation
// calls.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
}

type Config struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// NewOpenAIClientFromEnv builds the OpenAI-backed client. A missing API key
// is a configuration error surfaced at startup, not at call time.
func NewOpenAIClientFromEnv(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(envutil.GetEnv("OPENAI_API_KEY", "", log))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	return NewClient(log, Config{
		Provider:   "openai",
		BaseURL:    envutil.GetEnv("OPENAI_BASE_URL", "https://api.openai.com/v1", log),
		APIKey:     apiKey,
		Timeout:    envutil.GetEnvAsSeconds("OPENAI_TIMEOUT_SECONDS", 180*time.Second, log),
		MaxRetries: envutil.GetEnvAsInt("OPENAI_MAX_RETRIES", 2, log),
	}), nil
}

// NewGoogleClientFromEnv builds the Gemini-backed client through Google's
// OpenAI-compatible chat-completions surface.
func NewGoogleClientFromEnv(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(envutil.GetEnv("GOOGLE_API_KEY", "", log))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GOOGLE_API_KEY")
	}
	return NewClient(log, Config{
		Provider:   "google",
		BaseURL:    envutil.GetEnv("GOOGLE_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai", log),
		APIKey:     apiKey,
		Timeout:    envutil.GetEnvAsSeconds("GOOGLE_TIMEOUT_SECONDS", 180*time.Second, log),
		MaxRetries: envutil.GetEnvAsInt("GOOGLE_MAX_RETRIES", 2, log),
	}), nil
}

func NewClient(log *logger.Logger, cfg Config) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &client{
		log:        log.With("service", "LLMClient", "provider", cfg.Provider),
		provider:   cfg.Provider,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type client struct {
	log        *logger.Logger
	provider   string
	baseURL    string
	apiKey     string
	maxRetries int
	httpClient *http.Client
}

func (c *client) Provider() string { return c.provider }

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float64       `json:"temperature,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *client) Complete(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Model) == "" {
		return "", fmt.Errorf("model required")
	}

	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	if len(req.Media) == 0 {
		messages = append(messages, chatMessage{Role: "user", Content: req.User})
	} else {
		content := make([]map[string]any, 0, 1+len(req.Media))
		content = append(content, map[string]any{"type": "text", "text": req.User})
		for _, m := range req.Media {
			if len(m.Data) == 0 {
				continue
			}
			dataURL := fmt.Sprintf("data:%s;base64,%s", m.MimeType, base64.StdEncoding.EncodeToString(m.Data))
			content = append(content, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": dataURL},
			})
		}
		messages = append(messages, chatMessage{Role: "user", Content: content})
	}

	body := chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = map[string]any{"type": "json_object"}
	}

	var resp chatCompletionResponse
	if err := c.do(ctx, "POST", "/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion returned no choices", c.provider)
	}
	choice := resp.Choices[0]
	if strings.TrimSpace(choice.Message.Refusal) != "" {
		return "", fmt.Errorf("model refused: %s", choice.Message.Refusal)
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", fmt.Errorf("%s chat completion returned empty content", c.provider)
	}
	return choice.Message.Content, nil
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{Provider: c.provider, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("%s decode error: %w", c.provider, uErr)
			}
			return nil
		}

		// Invalid-model rejections are handled one level up by the selection
		// policy; retrying them here would just burn attempts.
		if IsInvalidModelError(err) || !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Provider request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

// HTTPError is a non-success provider response.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// IsInvalidModelError reports whether the provider rejected the request
// because the model id itself is unknown or inaccessible. Matches the common
// variants across OpenAI-compatible endpoints.
func IsInvalidModelError(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	if httpErr.StatusCode != http.StatusBadRequest && httpErr.StatusCode != http.StatusNotFound {
		return false
	}
	msg := strings.ToLower(httpErr.Body)
	if !strings.Contains(msg, "model") {
		return false
	}
	return strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "invalid model") ||
		strings.Contains(msg, "unknown model") ||
		strings.Contains(msg, "model_not_found") ||
		strings.Contains(msg, "do not have access")
}

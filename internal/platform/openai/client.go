package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spinnernet/backend/internal/observability"
	"github.com/spinnernet/backend/internal/platform/envutil"
	"github.com/spinnernet/backend/internal/platform/httpx"
	"github.com/spinnernet/backend/internal/platform/logger"
)

// ChatMessage is a single turn in a chat-completion request. Role is one of
// "system", "user" or "assistant".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions carries the per-call generation settings. The engine uses
// different settings for conversational replies and analytical extraction, so
// these are arguments rather than client state.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// Client is the chat-completion surface the rest of the backend depends on.
type Client interface {
	Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := envutil.Str("OPENAI_BASE_URL", "https://api.openai.com")
	model := envutil.Str("OPENAI_MODEL", "gpt-4o-mini")

	timeoutSec := envutil.Int("OPENAI_TIMEOUT_SECONDS", 120)
	maxRetries := envutil.Int("OPENAI_MAX_RETRIES", 4)
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &client{
		log:        log.With("service", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
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
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
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
				return fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.Retryable(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.NextDelay(resp, attempt, time.Second, 10*time.Second)

		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
	}

	return fmt.Errorf("unreachable retry loop")
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *client) Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages required")
	}

	req := chatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		req.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	start := time.Now()
	var resp chatCompletionResponse
	err := c.do(ctx, "POST", "/v1/chat/completions", req, &resp)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.Current().ObserveLLMRequest(
		c.model, "chat_completions", status, time.Since(start),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens,
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	// Missing content is returned as an empty reply, not an error.
	return resp.Choices[0].Message.Content, nil
}

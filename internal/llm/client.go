package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/pkg/httpx"
	"github.com/yungbote/breakdown-backend/internal/utils"
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// Config selects which provider and model a single generation call uses.
// Escalation runs the same prompt through several distinct Configs.
type Config struct {
	Provider    Provider `json:"provider"`
	Model       string   `json:"model"`
	Temperature float64  `json:"temperature,omitempty"`
}

// Client produces a single JSON object from a system+user prompt pair. The
// providers differ in transport only; all of them are asked for JSON-only
// output and the response text is reduced to its first JSON object.
type Client interface {
	GenerateJSON(ctx context.Context, cfg Config, system, user string) (json.RawMessage, error)
}

type client struct {
	log        *logger.Logger
	httpClient *http.Client
	maxRetries int

	openAIBaseURL    string
	openAIKey        string
	anthropicBaseURL string
	anthropicKey     string
	geminiBaseURL    string
	geminiKey        string
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	timeoutSec := utils.GetEnvAsInt("LLM_TIMEOUT_SECONDS", 180, log)
	maxRetries := utils.GetEnvAsInt("LLM_MAX_RETRIES", 4, log)

	return &client{
		log:              log.With("service", "LLMClient"),
		httpClient:       &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries:       maxRetries,
		openAIBaseURL:    strings.TrimRight(utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", log), "/"),
		openAIKey:        strings.TrimSpace(utils.GetEnv("OPENAI_API_KEY", "", log)),
		anthropicBaseURL: strings.TrimRight(utils.GetEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com", log), "/"),
		anthropicKey:     strings.TrimSpace(utils.GetEnv("ANTHROPIC_API_KEY", "", log)),
		geminiBaseURL:    strings.TrimRight(utils.GetEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com", log), "/"),
		geminiKey:        strings.TrimSpace(utils.GetEnv("GEMINI_API_KEY", "", log)),
	}, nil
}

type llmHTTPError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *llmHTTPError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *llmHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) GenerateJSON(ctx context.Context, cfg Config, system, user string) (json.RawMessage, error) {
	text, err := c.chat(ctx, cfg, system, user)
	if err != nil {
		return nil, err
	}
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("%s/%s returned no JSON object: %w", cfg.Provider, cfg.Model, err)
	}
	return obj, nil
}

func (c *client) chat(ctx context.Context, cfg Config, system, user string) (string, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return c.chatOpenAI(ctx, cfg, system, user)
	case ProviderAnthropic:
		return c.chatAnthropic(ctx, cfg, system, user)
	case ProviderGemini:
		return c.chatGemini(ctx, cfg, system, user)
	default:
		return "", fmt.Errorf("unknown provider: %q", cfg.Provider)
	}
}

func (c *client) doOnce(ctx context.Context, provider Provider, url string, headers map[string]string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

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
		return resp, raw, &llmHTTPError{Provider: provider, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, provider Provider, url string, headers map[string]string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, provider, url, headers, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("%s decode error: %w", provider, uErr)
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("LLM request retrying",
			"provider", provider,
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

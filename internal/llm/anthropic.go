package llm

import (
	"context"
	"fmt"
	"strings"
)

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *client) chatAnthropic(ctx context.Context, cfg Config, system, user string) (string, error) {
	if c.anthropicKey == "" {
		return "", fmt.Errorf("missing ANTHROPIC_API_KEY")
	}

	temp := cfg.Temperature
	if temp == 0 {
		temp = 0.2
	}

	req := anthropicRequest{
		Model:       cfg.Model,
		MaxTokens:   64000,
		Temperature: temp,
		System:      system,
		Messages: []anthropicMessage{
			{Role: "user", Content: user},
		},
	}

	var resp anthropicResponse
	err := c.do(ctx, ProviderAnthropic, c.anthropicBaseURL+"/v1/messages", map[string]string{
		"x-api-key":         c.anthropicKey,
		"anthropic-version": "2023-06-01",
	}, req, &resp)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, content := range resp.Content {
		b.WriteString(content.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic response contained no text")
	}
	return b.String(), nil
}

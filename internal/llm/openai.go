package llm

import (
	"context"
	"fmt"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model           string          `json:"model"`
	Input           []openAIMessage `json:"input"`
	MaxOutputTokens int             `json:"max_output_tokens,omitempty"`
}

type openAIResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func (c *client) chatOpenAI(ctx context.Context, cfg Config, system, user string) (string, error) {
	if c.openAIKey == "" {
		return "", fmt.Errorf("missing OPENAI_API_KEY")
	}

	req := openAIRequest{
		Model: cfg.Model,
		Input: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxOutputTokens: 64000,
	}

	var resp openAIResponse
	err := c.do(ctx, ProviderOpenAI, c.openAIBaseURL+"/v1/responses", map[string]string{
		"Authorization": "Bearer " + c.openAIKey,
	}, req, &resp)
	if err != nil {
		return "", err
	}

	for _, out := range resp.Output {
		if out.Type != "message" {
			continue
		}
		for _, content := range out.Content {
			if content.Type == "output_text" {
				return content.Text, nil
			}
		}
	}
	return "", fmt.Errorf("openai response contained no output_text")
}

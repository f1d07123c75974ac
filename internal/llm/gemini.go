package llm

import (
	"context"
	"fmt"
	"strings"
)

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *client) chatGemini(ctx context.Context, cfg Config, system, user string) (string, error) {
	if c.geminiKey == "" {
		return "", fmt.Errorf("missing GEMINI_API_KEY")
	}

	temp := cfg.Temperature
	if temp == 0 {
		temp = 0.2
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.geminiBaseURL, cfg.Model, c.geminiKey)
	req := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: system + "\n\n" + user}}},
		},
		GenerationConfig: geminiGenConfig{Temperature: temp},
	}

	var resp geminiResponse
	if err := c.do(ctx, ProviderGemini, url, nil, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini response contained no candidates")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini response contained no text")
	}
	return b.String(), nil
}

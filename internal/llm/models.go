package llm

import (
	"strings"

	"github.com/yungbote/breakdown-backend/internal/logger"
	"github.com/yungbote/breakdown-backend/internal/utils"
)

type ModelSize string

const (
	SizeSmall ModelSize = "small"
	SizeLarge ModelSize = "large"
)

var defaultModels = map[Provider]map[ModelSize]string{
	ProviderOpenAI: {
		SizeSmall: "gpt-5-mini",
		SizeLarge: "gpt-5",
	},
	ProviderAnthropic: {
		SizeSmall: "claude-haiku-4-5",
		SizeLarge: "claude-opus-4-5",
	},
	ProviderGemini: {
		SizeSmall: "gemini-3-pro-preview",
		SizeLarge: "gemini-3-pro-preview",
	},
}

func GetModel(provider Provider, size ModelSize) string {
	if models, ok := defaultModels[provider]; ok {
		if m, ok := models[size]; ok {
			return m
		}
	}
	return ""
}

// ParseProviderSpec reads a "provider,size" pair, e.g. "openai,large".
func ParseProviderSpec(spec string, fallback Config) Config {
	parts := strings.Split(strings.TrimSpace(spec), ",")
	if len(parts) != 2 {
		return fallback
	}
	provider := Provider(strings.TrimSpace(parts[0]))
	size := ModelSize(strings.TrimSpace(parts[1]))
	model := GetModel(provider, size)
	if model == "" {
		return fallback
	}
	return Config{Provider: provider, Model: model}
}

// StageModels holds one resolved provider/model pair per AI-calling pipeline
// stage, plus the fixed candidate set used by escalation.
type StageModels struct {
	Global  Config
	Extract Config
	Verify  Config
	Judge   Config
	Summary Config
}

func StageModelsFromEnv(log *logger.Logger) StageModels {
	openAILarge := Config{Provider: ProviderOpenAI, Model: GetModel(ProviderOpenAI, SizeLarge)}
	return StageModels{
		Global:  ParseProviderSpec(utils.GetEnv("LLM_DEFAULT_GLOBAL_PROVIDER", "openai,large", log), openAILarge),
		Extract: ParseProviderSpec(utils.GetEnv("LLM_DEFAULT_EXTRACT_PROVIDER", "openai,small", log), openAILarge),
		Verify:  ParseProviderSpec(utils.GetEnv("LLM_DEFAULT_VERIFY_PROVIDER", "openai,large", log), openAILarge),
		Judge:   ParseProviderSpec(utils.GetEnv("LLM_DEFAULT_JUDGE_PROVIDER", "openai,large", log), openAILarge),
		Summary: ParseProviderSpec(utils.GetEnv("LLM_DEFAULT_SUMMARY_PROVIDER", "openai,small", log), openAILarge),
	}
}

// Candidate names one escalation re-extraction configuration.
type Candidate struct {
	Name   string
	Config Config
}

// EscalationCandidates are the fixed provider set used to produce independent
// second opinions per escalated region.
func EscalationCandidates() []Candidate {
	return []Candidate{
		{Name: "openai_candidate", Config: Config{Provider: ProviderOpenAI, Model: GetModel(ProviderOpenAI, SizeSmall)}},
		{Name: "anthropic_candidate", Config: Config{Provider: ProviderAnthropic, Model: GetModel(ProviderAnthropic, SizeSmall)}},
		{Name: "gemini_candidate", Config: Config{Provider: ProviderGemini, Model: GetModel(ProviderGemini, SizeSmall)}},
	}
}

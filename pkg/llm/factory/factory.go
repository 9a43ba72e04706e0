package factory

import (
	"fmt"

	"sheetgrid-be/pkg/llm"
	"sheetgrid-be/pkg/llm/openrouter"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "openrouter":
		return openrouter.NewOpenRouterProvider(baseURL, apiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

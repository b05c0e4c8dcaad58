package factory

import (
	"fmt"

	"github.com/northquay/pharos/internal/config"
	"github.com/northquay/pharos/internal/llm"
	"github.com/northquay/pharos/internal/llm/claude"
	"github.com/northquay/pharos/internal/llm/openai"
)

// New creates an LLM provider based on configuration.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

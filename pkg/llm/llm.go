// Package llm constructs the configured decision-model provider
package llm

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/llm/anthropic"
	"github.com/jingkaihe/skillet/pkg/llm/openai"
	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

// Config selects and configures a provider
type Config struct {
	Provider  string // "anthropic" or "openai"
	Model     string
	MaxTokens int
	BaseURL   string // OpenAI-compatible endpoints only
}

// NewModel creates the decision model for the configured provider. When no
// provider is set, the model name decides: claude-* models go to Anthropic,
// everything else to OpenAI.
func NewModel(config Config) (llmtypes.Model, error) {
	provider := strings.ToLower(config.Provider)
	if provider == "" {
		if strings.HasPrefix(strings.ToLower(config.Model), "claude") || config.Model == "" {
			provider = "anthropic"
		} else {
			provider = "openai"
		}
	}

	switch provider {
	case "anthropic":
		return anthropic.New(anthropic.Config{
			Model:     config.Model,
			MaxTokens: config.MaxTokens,
		})
	case "openai":
		return openai.New(openai.Config{
			Model:   config.Model,
			BaseURL: config.BaseURL,
		})
	default:
		return nil, errors.Errorf("unsupported provider: %s", config.Provider)
	}
}

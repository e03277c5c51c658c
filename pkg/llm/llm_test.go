package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

func TestNewModelUnsupportedProvider(t *testing.T) {
	_, err := NewModel(Config{Provider: "cohere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestNewModelMissingCredentials(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewModel(Config{Provider: "anthropic"})
	require.Error(t, err)
	assert.True(t, llmtypes.IsCredentialError(err))

	_, err = NewModel(Config{Provider: "openai"})
	require.Error(t, err)
	assert.True(t, llmtypes.IsCredentialError(err))
}

func TestNewModelInfersProviderFromModelName(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("OPENAI_API_KEY", "test-key")

	model, err := NewModel(Config{Model: "claude-sonnet-4-20250514"})
	require.NoError(t, err)
	assert.NotNil(t, model)

	model, err = NewModel(Config{Model: "gpt-4.1"})
	require.NoError(t, err)
	assert.NotNil(t, model)
}

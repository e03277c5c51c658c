// Package anthropic adapts the Anthropic Messages API to the decision-model
// interface consumed by the agent loop.
package anthropic

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = string(anthropic.ModelClaude3_7SonnetLatest)

	defaultMaxTokens = 8192
	retryAttempts    = 3
	retryDelay       = 500 * time.Millisecond
)

// Config holds the provider settings
type Config struct {
	Model     string
	MaxTokens int
}

// Model is a stateless Anthropic-backed decision model. Conversation state
// lives with the caller; every Complete call carries the full history.
type Model struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New creates the provider. The API key comes from ANTHROPIC_API_KEY; its
// absence is reported as a credential error, not a transient one.
func New(config Config) (*Model, error) {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return nil, errors.Wrap(llmtypes.ErrNoCredentials, "ANTHROPIC_API_KEY is not set")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
	}
	return &Model{
		client:    anthropic.NewClient(),
		model:     anthropic.Model(config.Model),
		maxTokens: int64(config.MaxTokens),
	}, nil
}

// Complete sends one request and returns the normalized response
func (m *Model) Complete(ctx context.Context, systemPrompt string, messages []llmtypes.Message, tools []tooltypes.Tool) (llmtypes.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     m.model,
		MaxTokens: m.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: toAnthropicMessages(messages),
		Tools:    toAnthropicTools(tools),
	}

	response, err := retry.DoWithData(
		func() (*anthropic.Message, error) {
			return m.client.Messages.New(ctx, params)
		},
		retry.Attempts(retryAttempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Warn("retrying Anthropic API call")
		}),
	)
	if err != nil {
		return llmtypes.Response{}, errors.Wrap(err, "error sending message to Anthropic")
	}

	out := llmtypes.Response{
		Usage: llmtypes.Usage{
			InputTokens:  int(response.Usage.InputTokens),
			OutputTokens: int(response.Usage.OutputTokens),
		},
	}

	var textParts []string
	for _, block := range response.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, variant.Text)
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, llmtypes.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(variant.JSON.Input.Raw()),
			})
		}
	}
	out.Content = strings.Join(textParts, "\n")
	return out, nil
}

func toAnthropicMessages(messages []llmtypes.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llmtypes.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case llmtypes.RoleAssistant:
			param := anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant}
			if msg.Content != "" {
				param.Content = append(param.Content, anthropic.ContentBlockParamUnion{
					OfText: &anthropic.TextBlockParam{Type: "text", Text: msg.Content},
				})
			}
			for _, call := range msg.ToolCalls {
				var input any
				if err := json.Unmarshal([]byte(call.Arguments), &input); err != nil {
					input = map[string]any{}
				}
				param.Content = append(param.Content, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						Type:  "tool_use",
						ID:    call.ID,
						Name:  call.Name,
						Input: input,
					},
				})
			}
			if len(param.Content) > 0 {
				out = append(out, param)
			}
		case llmtypes.RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		}
	}
	return out
}

func toAnthropicTools(tools []tooltypes.Tool) []anthropic.ToolUnionParam {
	anthropicTools := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		anthropicTools[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name(),
				Description: anthropic.String(tool.Description()),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: tool.GenerateSchema().Properties,
				},
			},
		}
	}
	return anthropicTools
}

// Package openai adapts OpenAI and OpenAI-compatible chat-completion APIs to
// the decision-model interface consumed by the agent loop.
package openai

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/jingkaihe/skillet/pkg/logger"
	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = openai.GPT4Dot1

	retryAttempts = 3
	retryDelay    = 500 * time.Millisecond
)

// Config holds the provider settings. BaseURL allows pointing at
// OpenAI-compatible endpoints.
type Config struct {
	Model   string
	BaseURL string
}

// Model is a stateless OpenAI-backed decision model
type Model struct {
	client *openai.Client
	model  string
}

// New creates the provider. The API key comes from OPENAI_API_KEY; its
// absence is reported as a credential error, not a transient one.
func New(config Config) (*Model, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.Wrap(llmtypes.ErrNoCredentials, "OPENAI_API_KEY is not set")
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &Model{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.Model,
	}, nil
}

// Complete sends one request and returns the normalized response
func (m *Model) Complete(ctx context.Context, systemPrompt string, messages []llmtypes.Message, tools []tooltypes.Tool) (llmtypes.Response, error) {
	request := openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: toOpenAIMessages(systemPrompt, messages),
	}
	if len(tools) > 0 {
		request.Tools = toOpenAITools(ctx, tools)
		request.ToolChoice = "auto"
	}

	response, err := retry.DoWithData(
		func() (openai.ChatCompletionResponse, error) {
			return m.client.CreateChatCompletion(ctx, request)
		},
		retry.RetryIf(isRetryableError),
		retry.Attempts(retryAttempts),
		retry.Delay(retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Warn("retrying OpenAI API call")
		}),
	)
	if err != nil {
		return llmtypes.Response{}, errors.Wrap(err, "error sending message to OpenAI")
	}
	if len(response.Choices) == 0 {
		return llmtypes.Response{}, errors.New("no response choices returned from OpenAI")
	}

	choice := response.Choices[0].Message
	out := llmtypes.Response{
		Content: choice.Content,
		Usage: llmtypes.Usage{
			InputTokens:  response.Usage.PromptTokens,
			OutputTokens: response.Usage.CompletionTokens,
		},
	}
	for _, call := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llmtypes.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out, nil
}

func toOpenAIMessages(systemPrompt string, messages []llmtypes.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	out = append(out, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range messages {
		switch msg.Role {
		case llmtypes.RoleUser:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
		case llmtypes.RoleAssistant:
			converted := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			for _, call := range msg.ToolCalls {
				converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			out = append(out, converted)
		case llmtypes.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		}
	}
	return out
}

func toOpenAITools(ctx context.Context, tools []tooltypes.Tool) []openai.Tool {
	openaiTools := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		var jsonSchema map[string]interface{}
		schemaBytes, err := json.Marshal(tool.GenerateSchema())
		if err == nil {
			err = json.Unmarshal(schemaBytes, &jsonSchema)
		}
		if err != nil {
			logger.G(ctx).WithError(err).WithField("tool", tool.Name()).Error("failed to encode tool schema, sending an unconstrained one")
			jsonSchema = map[string]interface{}{"type": "object"}
		}

		openaiTools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  jsonSchema,
			},
		}
	}
	return openaiTools
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 429
	}

	var httpErr *openai.RequestError
	if errors.As(err, &httpErr) {
		return true
	}

	return false
}

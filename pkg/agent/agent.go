// Package agent implements the query-to-answer state machine: build a
// system prompt embedding the skill index, let the decision model request
// tools, execute them with deduplication, feed results back, and repeat
// until the model answers or the turn limit is hit.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/normalize"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/telemetry"
	"github.com/jingkaihe/skillet/pkg/tools"
	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

// DefaultMaxTurns bounds the decide/execute cycle for one run
const DefaultMaxTurns = 8

const previewChars = 200

var tracer = telemetry.Tracer("skillet.agent")

// ErrTurnLimit is wrapped into the error returned when a run exhausts its
// turn budget without the decision model producing a final answer.
var ErrTurnLimit = errors.New("turn limit exceeded")

// listSkillsTriggers are matched as lowercase substrings against the query.
// A hit answers from the registry directly without a decision-model call.
var listSkillsTriggers = []string{
	"list skills",
	"list your skills",
	"what skills",
	"which skills",
	"available skills",
	"skills do you have",
	"what can you do",
	"what are you capable of",
}

// ToolRecord captures one tool request handled during a run. Cached entries
// mark duplicate requests that were served from an earlier invocation; their
// ResultFull is byte-identical to the original's.
type ToolRecord struct {
	ToolName      string `json:"tool_name"`
	Arguments     string `json:"arguments"`
	ResultPreview string `json:"result_preview"`
	ResultFull    string `json:"-"`
	Cached        bool   `json:"cached,omitempty"`
}

// Result is the caller-facing outcome of one run. The shape is the same
// whether or not a skill was used.
type Result struct {
	RunID         string         `json:"run_id"`
	Response      string         `json:"response"`
	SelectedSkill string         `json:"selected_skill,omitempty"`
	ToolsCalled   []string       `json:"tools_called"`
	ToolResults   []ToolRecord   `json:"tool_results"`
	Usage         llmtypes.Usage `json:"usage"`
}

// Agent drives runs against a fixed model, skill loader and tool catalog.
// It holds no per-run state; one Agent serves concurrent queries.
type Agent struct {
	model    llmtypes.Model
	loader   *skills.Loader
	catalog  *tools.Catalog
	maxTurns int
}

// Option configures an Agent
type Option func(*Agent)

// WithMaxTurns overrides the per-run turn limit
func WithMaxTurns(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxTurns = n
		}
	}
}

// New creates an Agent
func New(model llmtypes.Model, loader *skills.Loader, catalog *tools.Catalog, opts ...Option) *Agent {
	a := &Agent{
		model:    model,
		loader:   loader,
		catalog:  catalog,
		maxTurns: DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ReloadTools rebuilds the tool catalog from its current definitions.
// Idempotent and safe to call while queries are in flight.
func (a *Agent) ReloadTools(ctx context.Context) {
	a.catalog.Reload(ctx)
}

// RunQuery executes one query to completion. Tool failures, unknown tools
// and duplicate calls are absorbed into the conversation; only credential
// problems, transport failures and turn-limit exhaustion come back as errors,
// always alongside the partial Result accumulated so far.
func (a *Agent) RunQuery(ctx context.Context, query string) (Result, error) {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "agent.run_query",
		trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()
	ctx = logger.WithLogger(ctx, logger.G(ctx).WithField("run_id", runID))

	registry := a.loader.Load(ctx)

	if isListSkillsQuery(query) {
		logger.G(ctx).Debug("answering list-skills query from the registry")
		return Result{
			RunID:       runID,
			Response:    registry.FormatListing(),
			ToolsCalled: []string{},
			ToolResults: []ToolRecord{},
		}, nil
	}

	snapshot := a.catalog.Snapshot()

	result := Result{
		RunID:       runID,
		ToolsCalled: []string{},
		ToolResults: []ToolRecord{},
	}
	messages := []llmtypes.Message{
		{Role: llmtypes.RoleUser, Content: query},
	}
	executed := make(map[string]string)

	for turn := 1; turn <= a.maxTurns; turn++ {
		span.AddEvent("turn", trace.WithAttributes(attribute.Int("turn", turn)))

		systemPrompt := buildSystemPrompt(registry, result.ToolResults)
		resp, err := a.model.Complete(ctx, systemPrompt, messages, snapshot.Tools())
		if err != nil {
			if llmtypes.IsCredentialError(err) {
				return result, err
			}
			return result, errors.Wrap(err, "decision model call failed")
		}
		result.Usage.Add(resp.Usage)

		content := normalize.Text(resp.Content)
		messages = append(messages, llmtypes.Message{
			Role:      llmtypes.RoleAssistant,
			Content:   content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			result.Response = content
			logger.G(ctx).WithField("turns", turn).
				WithField("tools_called", len(result.ToolsCalled)).
				Debug("run complete")
			return result, nil
		}

		for _, call := range resp.ToolCalls {
			if call.Name == tools.ReadSkillInstructionsToolName && result.SelectedSkill == "" {
				result.SelectedSkill = gjson.Get(call.Arguments, "skill_name").String()
			}

			key := call.Name + "\x00" + canonicalArgs(call.Arguments)
			full, cached := executed[key]
			if cached {
				logger.G(ctx).WithField("tool", call.Name).Debug("duplicate tool call served from cache")
				full = "[already executed] This exact tool call ran earlier in this run; its result is repeated below. Do not call it again.\n\n" + full
			} else {
				toolResult := snapshot.Run(ctx, call.Name, call.Arguments)
				full = toolResult.String()
				executed[key] = full
				result.ToolsCalled = append(result.ToolsCalled, call.Name)
			}

			record := ToolRecord{
				ToolName:      call.Name,
				Arguments:     call.Arguments,
				ResultPreview: preview(executed[key]),
				ResultFull:    executed[key],
				Cached:        cached,
			}
			result.ToolResults = append(result.ToolResults, record)

			messages = append(messages, llmtypes.Message{
				Role:       llmtypes.RoleTool,
				Content:    full,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	return result, errors.Wrapf(ErrTurnLimit, "no final answer after %d turns", a.maxTurns)
}

func buildSystemPrompt(registry *skills.Registry, records []ToolRecord) string {
	var sb strings.Builder
	sb.WriteString("You are a skill orchestration assistant. You answer user queries, using the specialized skills below when one applies.\n\n")
	sb.WriteString(registry.FormatForPrompt())
	sb.WriteString("\n## Operating rules\n")
	sb.WriteString("1. If a skill applies, call read_skill_instructions for it first and follow the workflow it returns.\n")
	sb.WriteString("2. Call read_skill_instructions at most once per query.\n")
	sb.WriteString("3. Call each tool at most once per query; never repeat a call you already made.\n")
	sb.WriteString("4. Once you have the tool results you need, stop calling tools and write the final answer.\n")
	sb.WriteString("5. If no skill applies, answer directly without tools.\n")

	if len(records) > 0 {
		sb.WriteString("\n## Tool calls already executed this run\n")
		sb.WriteString("You already have these results; do not request them again.\n")
		for _, record := range records {
			fmt.Fprintf(&sb, "- %s(%s): %s\n", record.ToolName, record.Arguments, record.ResultPreview)
		}
	}
	return sb.String()
}

// canonicalArgs produces a deterministic form of a tool call's argument
// string for dedup keys. JSON objects are re-encoded with sorted keys so two
// calls that differ only in key order collide.
func canonicalArgs(arguments string) string {
	var decoded any
	if err := json.Unmarshal([]byte(arguments), &decoded); err != nil {
		return strings.TrimSpace(arguments)
	}
	encoded, err := json.Marshal(decoded)
	if err != nil {
		return strings.TrimSpace(arguments)
	}
	return string(encoded)
}

func isListSkillsQuery(query string) bool {
	lowered := strings.ToLower(query)
	for _, trigger := range listSkillsTriggers {
		if strings.Contains(lowered, trigger) {
			return true
		}
	}
	return false
}

func preview(full string) string {
	if len(full) <= previewChars {
		return full
	}
	// back up to a rune boundary so the prompt never carries invalid UTF-8
	cut := previewChars
	for cut > 0 && !utf8.RuneStart(full[cut]) {
		cut--
	}
	return full[:cut] + "..."
}

// Package authoring implements the skill-creation pipeline: extract a
// structured brief from a free-text description, generate the skill document
// and implementation script, write them to disk, register a dynamic tool, and
// self-test that routing would pick the new skill up.
package authoring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/matcher"
	"github.com/jingkaihe/skillet/pkg/normalize"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/tools"
	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

const briefSystemPrompt = `You are a skill architect. Given a skill description, return ONLY valid JSON
(no markdown fences, no explanation) matching this schema exactly:
{
  "skill_name": "lowercase-hyphen-name",
  "one_liner": "one sentence summary",
  "what_it_does": "detailed description",
  "trigger_phrases": ["phrase 1", "phrase 2"],
  "input_type": "what the user provides",
  "output_type": "what the skill produces",
  "suggested_test_query": "a realistic user query that should trigger this skill"
}`

const skillDocSystemPrompt = `You are an expert skill architect for an AI agent system.
Write a complete, production-quality SKILL.md for a new skill.

FORMAT:
---
name: <skill-name>
description: <1-2 sentence description. State WHEN to trigger it and WHAT it does. Include specific keywords and contexts.>
---

# <Title>

## Overview
## Workflow (Step 1, Step 2, ... be very explicit, the steps are followed exactly)
## Error Handling
## Output Formatting

RULES:
- Workflow steps must be explicit, no vague instructions
- The description field must be keyword-rich for routing
- Return ONLY the raw SKILL.md, no fences, no explanation`

const scriptSystemPrompt = `You are an expert Python developer writing an implementation script for an AI skill.
Requirements:
- Complete, working Python, no placeholders
- The main function accepts the primary input string and returns a dict with {"success": bool, ...}
- try/except error handling throughout
- CLI entry point: if __name__ == "__main__" that takes the input as the final argv element and prints the result as JSON
Return ONLY raw Python code, no fences, no explanation.`

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Brief is the structured intent extracted from a free-text description
type Brief struct {
	SkillName      string
	OneLiner       string
	WhatItDoes     string
	TriggerPhrases []string
	InputType      string
	OutputType     string
	TestQuery      string
}

// Result reports what the pipeline produced
type Result struct {
	SkillName             string           `json:"skill_name"`
	SkillDir              string           `json:"skill_dir"`
	SkillDoc              string           `json:"skill_doc"`
	Script                string           `json:"script"`
	ToolDef               tools.Definition `json:"tool_def"`
	Registered            bool             `json:"registered"`
	RoutingSelfTestPassed bool             `json:"routing_self_test_passed"`
	RoutingReport         string           `json:"routing_report"`
	Usage                 llmtypes.Usage   `json:"usage"`
}

// Creator runs the pipeline against a model, a skills directory, the dynamic
// tool store and the live catalog.
type Creator struct {
	model   llmtypes.Model
	loader  *skills.Loader
	store   *tools.Store
	catalog *tools.Catalog
}

// NewCreator creates a Creator
func NewCreator(model llmtypes.Model, loader *skills.Loader, store *tools.Store, catalog *tools.Catalog) *Creator {
	return &Creator{model: model, loader: loader, store: store, catalog: catalog}
}

// CreateSkill runs the full pipeline. A successful result means the skill
// document and script are on disk and the dynamic tool is live in the
// catalog; RoutingSelfTestPassed additionally means a routing probe with the
// brief's test query selected the new skill.
func (c *Creator) CreateSkill(ctx context.Context, description string) (*Result, error) {
	if strings.TrimSpace(description) == "" {
		return nil, errors.New("skill description is empty")
	}

	result := &Result{}

	brief, err := c.buildBrief(ctx, description, &result.Usage)
	if err != nil {
		return nil, err
	}
	result.SkillName = brief.SkillName
	log := logger.G(ctx).WithField("skill", brief.SkillName)
	log.Info("building skill")

	result.SkillDoc, err = c.generateSkillDoc(ctx, brief, &result.Usage)
	if err != nil {
		return nil, err
	}
	result.Script, err = c.generateScript(ctx, brief, &result.Usage)
	if err != nil {
		return nil, err
	}

	result.SkillDir, err = c.writeToDisk(brief, result.SkillDoc, result.Script)
	if err != nil {
		return nil, err
	}

	result.ToolDef = tools.Definition{
		Name:        brief.SkillName + "-tool",
		Description: brief.OneLiner,
		Command:     []string{"python3", scriptFileName(brief.SkillName)},
		Dir:         filepath.Join(result.SkillDir, "scripts"),
	}
	if _, err := c.store.Append(ctx, result.ToolDef); err != nil {
		return nil, errors.Wrap(err, "failed to register tool definition")
	}
	c.catalog.Reload(ctx)
	result.Registered = c.catalog.Has(result.ToolDef.Name)

	result.RoutingSelfTestPassed, result.RoutingReport = c.testRouting(ctx, brief, &result.Usage)
	if !result.RoutingSelfTestPassed {
		log.WithField("report", result.RoutingReport).Warn("routing self-test failed")
	}
	return result, nil
}

func (c *Creator) buildBrief(ctx context.Context, description string, usage *llmtypes.Usage) (*Brief, error) {
	raw, err := c.complete(ctx, briefSystemPrompt, "Skill description: "+description, usage)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build skill brief")
	}

	raw = stripFences(raw)
	brief := &Brief{
		SkillName:  slugify(gjson.Get(raw, "skill_name").String()),
		OneLiner:   gjson.Get(raw, "one_liner").String(),
		WhatItDoes: gjson.Get(raw, "what_it_does").String(),
		InputType:  gjson.Get(raw, "input_type").String(),
		OutputType: gjson.Get(raw, "output_type").String(),
		TestQuery:  gjson.Get(raw, "suggested_test_query").String(),
	}
	for _, phrase := range gjson.Get(raw, "trigger_phrases").Array() {
		brief.TriggerPhrases = append(brief.TriggerPhrases, phrase.String())
	}

	// a minimal brief derived from the description keeps the pipeline going
	// when the model's JSON cannot be used
	if brief.SkillName == "" {
		brief.SkillName = truncateSlug(slugify(description), 40)
	}
	if brief.SkillName == "" {
		return nil, errors.New("could not derive a skill name from the description")
	}
	if brief.OneLiner == "" {
		brief.OneLiner = description
	}
	if brief.WhatItDoes == "" {
		brief.WhatItDoes = description
	}
	if brief.TestQuery == "" {
		brief.TestQuery = description
	}
	return brief, nil
}

func (c *Creator) generateSkillDoc(ctx context.Context, brief *Brief, usage *llmtypes.Usage) (string, error) {
	prompt := fmt.Sprintf(`Create a complete SKILL.md for:
Skill name:       %s
Summary:          %s
Full description: %s
Trigger phrases:  %s
Input:            %s
Output:           %s
Test query:       %s`,
		brief.SkillName, brief.OneLiner, brief.WhatItDoes,
		strings.Join(brief.TriggerPhrases, ", "),
		brief.InputType, brief.OutputType, brief.TestQuery)

	doc, err := c.complete(ctx, skillDocSystemPrompt, prompt, usage)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate skill document")
	}
	doc = stripFences(doc)

	// the registry requires frontmatter with name and description
	if !strings.HasPrefix(strings.TrimSpace(doc), "---") {
		doc = fmt.Sprintf("---\nname: %s\ndescription: %s\n---\n\n%s",
			brief.SkillName, brief.OneLiner, doc)
	}
	return doc, nil
}

func (c *Creator) generateScript(ctx context.Context, brief *Brief, usage *llmtypes.Usage) (string, error) {
	prompt := fmt.Sprintf(`Write a complete Python implementation for:
Skill:         %s
What it does:  %s
Input:         %s
Output:        %s
Main function: run_%s(input_value: str) -> dict
Script file:   %s`,
		brief.SkillName, brief.WhatItDoes, brief.InputType, brief.OutputType,
		strings.ReplaceAll(brief.SkillName, "-", "_"), scriptFileName(brief.SkillName))

	script, err := c.complete(ctx, scriptSystemPrompt, prompt, usage)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate implementation script")
	}
	return stripFences(script), nil
}

func (c *Creator) writeToDisk(brief *Brief, skillDoc, script string) (string, error) {
	skillDir := filepath.Join(c.loader.Root(), brief.SkillName)
	scriptsDir := filepath.Join(skillDir, "scripts")

	if _, err := os.Stat(skillDir); err == nil {
		backup := skillDir + "_backup"
		if err := os.RemoveAll(backup); err != nil {
			return "", errors.Wrap(err, "failed to clear previous backup")
		}
		if err := os.Rename(skillDir, backup); err != nil {
			return "", errors.Wrap(err, "failed to back up existing skill")
		}
	}

	if err := os.MkdirAll(scriptsDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create skill directory")
	}
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(skillDoc), 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write skill document")
	}
	if err := os.WriteFile(filepath.Join(scriptsDir, scriptFileName(brief.SkillName)), []byte(script), 0o755); err != nil {
		return "", errors.Wrap(err, "failed to write implementation script")
	}
	return skillDir, nil
}

func (c *Creator) testRouting(ctx context.Context, brief *Brief, usage *llmtypes.Usage) (bool, string) {
	registry := c.loader.Load(ctx)
	if _, ok := registry.Get(brief.SkillName); !ok {
		return false, fmt.Sprintf("skill %q not in registry after creation", brief.SkillName)
	}

	selection := matcher.SelectSkill(ctx, c.model, registry, brief.TestQuery)
	usage.Add(selection.Usage)
	report := fmt.Sprintf("routed to %q (confidence %.2f): %s",
		selection.SkillName, selection.Confidence, selection.Reasoning)
	return selection.SkillName == brief.SkillName, report
}

func (c *Creator) complete(ctx context.Context, systemPrompt, userPrompt string, usage *llmtypes.Usage) (string, error) {
	resp, err := c.model.Complete(ctx, systemPrompt, []llmtypes.Message{
		{Role: llmtypes.RoleUser, Content: userPrompt},
	}, nil)
	if err != nil {
		return "", err
	}
	usage.Add(resp.Usage)
	return normalize.Text(resp.Content), nil
}

func scriptFileName(skillName string) string {
	return strings.ReplaceAll(skillName, "-", "_") + ".py"
}

func slugify(raw string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(raw), "-"), "-")
}

func truncateSlug(slug string, max int) string {
	if len(slug) <= max {
		return slug
	}
	return strings.Trim(slug[:max], "-")
}

func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

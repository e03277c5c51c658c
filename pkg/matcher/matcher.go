// Package matcher decides, per query, whether a skill applies and which one.
// The decision model is asked for a strict JSON verdict; everything about the
// answer is treated as hostile input, with a deterministic keyword fallback
// when the model's output cannot be parsed at all.
package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/normalize"
	"github.com/jingkaihe/skillet/pkg/skills"
	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

const selectionSystemPrompt = `You are a skill-routing assistant with access to a registry of skills.
Analyze the user's request and decide:
1. Does this request require a specialized skill from the registry?
2. If yes, which skill is the best match?

Skills are only triggered for complex, multi-step, or specialized tasks.
Simple one-step queries do NOT need a skill.

You MUST respond with valid JSON only - no markdown fences, no explanation:
{
  "needs_skill": true or false,
  "skill_name": "exact-skill-name-from-registry or null",
  "confidence": 0.0 to 1.0,
  "reasoning": "brief explanation"
}`

// minimum keyword overlap for the deterministic fallback to select a skill
const fallbackMinOverlap = 2

// Selection is the matcher's verdict for one query
type Selection struct {
	SkillName  string // empty when no skill applies
	Confidence float64
	Reasoning  string
	Usage      llmtypes.Usage
}

// SelectSkill asks the decision model which skill (if any) applies to the
// query and validates the answer against the registry. It never returns an
// error: unparsable model output degrades to a keyword-overlap heuristic.
func SelectSkill(ctx context.Context, model llmtypes.Model, reg *skills.Registry, query string) Selection {
	if reg.Len() == 0 {
		return Selection{Reasoning: "no skills available"}
	}

	prompt := fmt.Sprintf("%s\n\nUser request: %s\n\nAnalyze the request and select the appropriate skill, or indicate no skill is needed.",
		reg.FormatForPrompt(), query)

	resp, err := model.Complete(ctx, selectionSystemPrompt, []llmtypes.Message{
		{Role: llmtypes.RoleUser, Content: prompt},
	}, nil)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("skill selection call failed, using keyword fallback")
		return keywordFallback(reg, query, fmt.Sprintf("selection call failed: %v", err), llmtypes.Usage{})
	}

	raw := stripFences(normalize.Text(resp.Content))
	if !gjson.Valid(raw) || !gjson.Get(raw, "needs_skill").Exists() {
		return keywordFallback(reg, query, fmt.Sprintf("parse failure: selection response was not the expected JSON shape: %.80q", raw), resp.Usage)
	}

	sel := Selection{
		Confidence: gjson.Get(raw, "confidence").Float(),
		Reasoning:  gjson.Get(raw, "reasoning").String(),
		Usage:      resp.Usage,
	}

	if !gjson.Get(raw, "needs_skill").Bool() {
		return sel
	}

	name := gjson.Get(raw, "skill_name").String()
	if name == "" || name == "null" {
		return sel
	}

	if _, ok := reg.Get(name); ok {
		sel.SkillName = name
		return sel
	}

	if resolved, ok := fuzzyResolve(reg, name); ok {
		logger.G(ctx).WithField("requested", name).WithField("resolved", resolved).Debug("fuzzy-resolved skill name")
		sel.SkillName = resolved
	}
	return sel
}

// stripFences removes surrounding markdown code-fence markers
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

// fuzzyResolve maps a near-miss name onto a registry entry via
// case-insensitive containment in either direction. Ambiguity (more than one
// candidate) resolves to nothing rather than guessing.
func fuzzyResolve(reg *skills.Registry, name string) (string, bool) {
	lower := strings.ToLower(name)
	var candidates []string
	for _, known := range reg.Names() {
		knownLower := strings.ToLower(known)
		if strings.Contains(knownLower, lower) || strings.Contains(lower, knownLower) {
			candidates = append(candidates, known)
		}
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}
	return "", false
}

// keywordFallback tokenizes each skill description and counts overlapping
// tokens longer than four characters against the query. Deterministic: scan
// order decides ties.
func keywordFallback(reg *skills.Registry, query, reason string, usage llmtypes.Usage) Selection {
	queryLower := strings.ToLower(query)

	bestName := ""
	bestOverlap := 0
	for _, skill := range reg.All() {
		overlap := 0
		seen := map[string]bool{}
		for _, token := range strings.Fields(strings.ToLower(skill.Description)) {
			token = strings.Trim(token, ".,:;()!?\"'")
			if len(token) <= 4 || seen[token] {
				continue
			}
			seen[token] = true
			if strings.Contains(queryLower, token) {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestOverlap = overlap
			bestName = skill.Name
		}
	}

	if bestOverlap >= fallbackMinOverlap {
		return Selection{
			SkillName:  bestName,
			Confidence: 0.5,
			Reasoning:  fmt.Sprintf("keyword fallback match (%d keywords); %s", bestOverlap, reason),
			Usage:      usage,
		}
	}
	return Selection{Reasoning: reason, Usage: usage}
}

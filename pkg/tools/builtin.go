package tools

import (
	"context"

	"github.com/jingkaihe/skillet/pkg/skills"
	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

// DefaultBuild returns the catalog BuildFunc assembling the built-in tools
// plus every dynamic tool currently persisted in the store. Called on every
// catalog reload, so a freshly appended definition becomes invokable as soon
// as Reload returns.
func DefaultBuild(loader *skills.Loader, store *Store) BuildFunc {
	return func(ctx context.Context) []tooltypes.Tool {
		set := []tooltypes.Tool{
			NewReadSkillInstructionsTool(loader),
			NewListSkillsTool(loader),
			NewExtractTranscriptTool(),
			NewWebScrapeTool(),
		}
		for _, def := range store.Load(ctx) {
			set = append(set, NewDynamicTool(def))
		}
		return set
	}
}

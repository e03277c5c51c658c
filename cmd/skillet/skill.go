package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Inspect and author skills",
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the skills in the registry",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		rt, err := newRuntime(ctx)
		if err != nil {
			presenter.Error(err, "initializing")
			os.Exit(1)
		}

		registry := rt.loader.Load(ctx)
		if registry.Len() == 0 {
			presenter.Warning("no skills found in " + rt.loader.Root())
			return
		}
		presenter.Info(registry.FormatListing())
	},
}

var skillCreateCmd = &cobra.Command{
	Use:   "create [description]",
	Short: "Author a new skill from a plain-English description",
	Long: `Author a new skill: generate its SKILL.md and implementation script,
register a dynamic tool for it, and verify that routing picks it up.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		rt, err := newRuntime(ctx)
		if err != nil {
			presenter.Error(err, "initializing")
			os.Exit(1)
		}

		result, err := rt.creator.CreateSkill(ctx, strings.Join(args, " "))
		if err != nil {
			presenter.Error(err, "creating skill")
			os.Exit(1)
		}

		presenter.Success(fmt.Sprintf("skill %q written to %s", result.SkillName, result.SkillDir))
		if result.Registered {
			presenter.Success(fmt.Sprintf("tool %q is live", result.ToolDef.Name))
		} else {
			presenter.Warning(fmt.Sprintf("tool %q was not registered", result.ToolDef.Name))
		}
		if result.RoutingSelfTestPassed {
			presenter.Success("routing self-test passed: " + result.RoutingReport)
		} else {
			presenter.Warning("routing self-test failed: " + result.RoutingReport)
		}
	},
}

func init() {
	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillCreateCmd)
}

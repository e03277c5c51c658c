package main

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/presenter"
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Execute a one-shot query",
	Long:  `Execute a one-shot query against the skill agent and print the answer.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		query := strings.Join(args, " ")

		// piped input is appended to the query
		if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
			stdin, err := io.ReadAll(os.Stdin)
			if err != nil {
				presenter.Error(err, "reading from stdin")
				os.Exit(1)
			}
			query = strings.TrimSpace(query + "\n" + string(stdin))
		}
		if query == "" {
			presenter.Error(os.ErrInvalid, "no query provided")
			os.Exit(1)
		}

		rt, err := newRuntime(ctx)
		if err != nil {
			presenter.Error(err, "initializing")
			os.Exit(1)
		}

		result, err := rt.agent.RunQuery(ctx, query)
		if err != nil {
			presenter.Error(err, "running query")
			os.Exit(1)
		}

		presenter.Info(result.Response)
		presenter.Separator()
		presenter.RunStats(&result)
	},
}

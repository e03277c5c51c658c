package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/server"
	"github.com/jingkaihe/skillet/pkg/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server. With --watch, changes to the skills
directory reload the tool catalog automatically.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		rt, err := newRuntime(ctx)
		if err != nil {
			presenter.Error(err, "initializing")
			os.Exit(1)
		}

		if rt.config.Watch {
			watcher, err := tools.NewWatcher(rt.catalog, rt.loader.Root())
			if err != nil {
				presenter.Error(err, "starting skills watcher")
				os.Exit(1)
			}
			go watcher.Run(ctx)
		}

		srv := server.New(rt.agent, rt.creator, rt.loader)
		if err := srv.ListenAndServe(ctx, rt.config.ServerAddr); err != nil {
			presenter.Error(err, "serving")
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	serveCmd.Flags().Bool("watch", false, "reload the tool catalog on skills-directory changes")
	viper.BindPFlag("server_addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("watch", serveCmd.Flags().Lookup("watch"))
}

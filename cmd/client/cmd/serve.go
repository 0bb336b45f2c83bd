package cmd

import (
	"github.com/spf13/cobra"
)

var noAuto bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local API with connectivity probing and auto-sync",
	Long: `Serve starts the local control API used by the UI, probes the sync
server and, unless disabled, synchronizes on an interval and whenever the
connection comes back. It runs until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if noAuto {
			app.AutoSync().SetEnabled(false)
		}
		return app.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&noAuto, "no-auto", false, "disable automatic sync")
}

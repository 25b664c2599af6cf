package cmd

import (
	"github.com/spf13/cobra"

	"github.com/BioHazard786/posebridge/internal/app"
	"github.com/BioHazard786/posebridge/internal/broker"
	"github.com/BioHazard786/posebridge/internal/ui"
)

var (
	flagPort int
	flagMode string
)

var brokerCmd = &cobra.Command{
	Use:   "broker",
	Short: "Run the identity broker that introduces trackers and viewers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		port := cfg.BrokerPort
		if flagPort != 0 {
			port = flagPort
		}
		mode := cfg.BrokerMode
		if flagMode != "" {
			mode = flagMode
		}

		ui.PrintInfof("broker listening on :%d (/ws, /health)", port)
		if err := broker.Serve(cmd.Context(), port, mode); err != nil {
			return app.NewError("broker", err)
		}
		return nil
	},
}

func init() {
	brokerCmd.Flags().IntVar(&flagPort, "port", 0, "listen port (default 8080, env PORT)")
	brokerCmd.Flags().StringVar(&flagMode, "mode", "", "gin mode: release or debug")
}

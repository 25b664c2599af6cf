package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/posebridge/internal/logging"
	"github.com/BioHazard786/posebridge/internal/ui"
	"github.com/BioHazard786/posebridge/internal/version"
)

var (
	flagConfig    string
	flagDomain    string
	flagBrokerURL string
	flagSTUN      string
	flagTURN      string
	flagTURNUser  string
	flagTURNPass  string
	flagRelay     bool
	flagLogFile   string
	flagPlain     bool
)

var rootCmd = &cobra.Command{
	Use:   "posebridge",
	Short: "Stream a live orientation from one device to an AR viewer over WebRTC",
	Long: `posebridge sends yaw, pitch and roll from a tracker to a viewer over a
peer-to-peer WebRTC data channel. The viewer places a virtual object on a
detected surface and turns it with the received orientation.

Run "posebridge broker" once, "posebridge host <room>" on the tracker and
"posebridge view <room>" on the viewer.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagLogFile == "" {
			return nil
		}
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logging.InitWithWriter(f)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default ./posebridge.yaml or ~/.config/posebridge/posebridge.yaml)")
	pf.StringVarP(&flagDomain, "domain", "d", "", "broker domain")
	pf.StringVar(&flagBrokerURL, "broker-url", "", "full broker websocket URL, overrides --domain")
	pf.StringVarP(&flagSTUN, "stun", "s", "", "STUN server URL")
	pf.StringVarP(&flagTURN, "turn", "t", "", "TURN server URL")
	pf.StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	pf.StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	pf.BoolVarP(&flagRelay, "relay", "r", false, "force relay through TURN")
	pf.StringVar(&flagLogFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(hostCmd, viewCmd, brokerCmd)
}

// Execute runs the root command. Interrupts cancel the command context so
// sessions can print their summary.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

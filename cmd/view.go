package cmd

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/BioHazard786/posebridge/internal/app"
	"github.com/BioHazard786/posebridge/internal/timeutil"
	"github.com/BioHazard786/posebridge/internal/ui"
	"github.com/BioHazard786/posebridge/internal/xr/sim"
)

var viewCmd = &cobra.Command{
	Use:     "view [room]",
	Aliases: []string{"v", "join"},
	Short:   "Join a room and place the tracked object in a simulated AR scene",
	Long: `Connect to the tracker of a room, start an AR session and place an
object that follows the received orientation.

Examples:
  posebridge view kitchen
  posebridge view --plain`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room := ""
		if len(args) == 1 {
			room = args[0]
		}
		return view(cmd.Context(), room)
	},
}

func init() {
	viewCmd.Flags().BoolVar(&flagPlain, "plain", false, "read commands from stdin and print the event log")
}

func view(ctx context.Context, room string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tr, err := openTransport(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer tr.Close()

	clock := timeutil.RealClock{}
	loop := app.NewLoop(clock, cfg.FrameInterval())
	feed := ui.NewFeed[app.ViewerView]()

	opts := app.ViewerOptions{
		Context:        ctx,
		LocalID:        tr.LocalID(),
		Transport:      tr,
		Platform:       sim.New(clock, cfg.FrameInterval()),
		Clock:          clock,
		ConnectTimeout: cfg.ConnectTimeout,
		StaleAfter:     cfg.StaleAfter,
		Post:           loop.Post,
		Publish:        feed.Publish,
	}
	if flagPlain {
		opts.Publish = logPrinter()
	}
	viewer := app.NewViewer(opts)
	viewer.Start()
	if room != "" {
		loop.Post(app.ConnectRequest{Room: room})
	}

	if flagPlain {
		go app.ReadLines(ctx, os.Stdin, app.ParseViewerLine, loop.Post, func(err error) {
			ui.PrintWarning(err.Error())
		})
		loop.Run(ctx, viewer)
	} else {
		initial := viewer.View()
		initial.Room = room
		program := tea.NewProgram(ui.NewViewerModel(loop.Post, feed, initial), tea.WithAltScreen())
		if err := runScreen(ctx, loop, viewer, program); err != nil {
			return app.NewError("view", err)
		}
	}

	ui.RenderSummary("Session Summary", viewer.Summary())
	return nil
}

// logPrinter prints log entries as they are added, oldest first.
func logPrinter() func(app.ViewerView) {
	seen := 0
	return func(v app.ViewerView) {
		fresh := min(v.LogTotal-seen, len(v.Log))
		for i := fresh - 1; i >= 0; i-- {
			ui.PrintInfo(v.Log[i].String())
		}
		seen = v.LogTotal
	}
}

package cmd

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/BioHazard786/posebridge/internal/app"
	"github.com/BioHazard786/posebridge/internal/link"
	"github.com/BioHazard786/posebridge/internal/timeutil"
	"github.com/BioHazard786/posebridge/internal/ui"
)

var hostCmd = &cobra.Command{
	Use:     "host <room>",
	Aliases: []string{"h", "track"},
	Short:   "Host a room and stream your orientation to the viewer that joins",
	Long: `Register as the tracker of a room and stream yaw, pitch and roll to the
viewer that connects.

Examples:
  posebridge host kitchen
  posebridge host kitchen --plain < angles.txt
  echo "yaw=0.3 pitch=-0.1 roll=0" | posebridge host kitchen --plain`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return host(cmd.Context(), args[0])
	},
}

func init() {
	hostCmd.Flags().BoolVar(&flagPlain, "plain", false, "read angles from stdin instead of the interactive sliders")
}

func host(ctx context.Context, room string) error {
	identity, err := link.TrackerIdentity(room)
	if err != nil {
		return app.NewError("host", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tr, err := openTransport(ctx, cfg, identity)
	if err != nil {
		return err
	}
	defer tr.Close()

	clock := timeutil.RealClock{}
	loop := app.NewLoop(clock, cfg.FrameInterval())
	feed := ui.NewFeed[app.TrackerView]()

	opts := app.TrackerOptions{
		Room:           room,
		Transport:      tr,
		Clock:          clock,
		ConnectTimeout: cfg.ConnectTimeout,
		Post:           loop.Post,
		Publish:        feed.Publish,
	}
	if flagPlain {
		opts.Publish = statusPrinter()
	}
	tracker, err := app.NewTracker(opts)
	if err != nil {
		return err
	}

	if flagPlain {
		ui.PrintInfo(tracker.View().Status)
		go app.ReadLines(ctx, os.Stdin, app.ParseTrackerLine, loop.Post, func(err error) {
			ui.PrintWarning(err.Error())
		})
		loop.Run(ctx, tracker)
	} else {
		program := tea.NewProgram(ui.NewTrackerModel(loop.Post, feed, tracker.View()))
		if err := runScreen(ctx, loop, tracker, program); err != nil {
			return app.NewError("host", err)
		}
	}

	ui.RenderSummary("Session Summary", tracker.Summary())
	return nil
}

// statusPrinter prints each new tracker status line.
func statusPrinter() func(app.TrackerView) {
	last := ""
	return func(v app.TrackerView) {
		if v.Status != last {
			last = v.Status
			ui.PrintInfo(v.Status)
		}
	}
}

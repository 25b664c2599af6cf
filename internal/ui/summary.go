package ui

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/BioHazard786/posebridge/internal/app"
	"github.com/BioHazard786/posebridge/internal/utils"
)

// SummaryView renders the end-of-session table.
func SummaryView(title string, s app.Summary) string {
	t := table.NewWriter()
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})

	remote := s.Remote
	if remote == "" {
		remote = "-"
	}

	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Role", s.Role})
	t.AppendRow(table.Row{"Peer", remote})
	switch s.Role {
	case "tracker":
		t.AppendRow(table.Row{"Poses sent", s.PosesSent})
		t.AppendRow(table.Row{"Poses dropped", s.Dropped})
	default:
		t.AppendRow(table.Row{"Poses received", s.Received})
		t.AppendRow(table.Row{"Poses rejected", s.Rejected})
		t.AppendRow(table.Row{"Frames", s.Frames})
		t.AppendRow(table.Row{"Placements", s.Placements})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Duration", utils.FormatTimeDuration(s.Duration)})

	return t.Render()
}

// RenderSummary prints the summary table to stdout.
func RenderSummary(title string, s app.Summary) {
	fmt.Println()
	fmt.Println(SummaryView(title, s))
}

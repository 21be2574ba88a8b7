package ui

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SessionSummary holds the final stats printed after leaving a room.
type SessionSummary struct {
	RoomID       string
	Participants int
	Messages     int
	Duration     string
}

// RenderSessionSummary prints the end-of-session stats table.
func RenderSessionSummary(title string, summary SessionSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter

	t.AppendRows([]table.Row{
		{"Room", summary.RoomID},
		{"Peak participants", fmt.Sprintf("%d", summary.Participants)},
		{"Chat messages", fmt.Sprintf("%d", summary.Messages)},
		{"Duration", summary.Duration},
	})

	fmt.Println()
	t.Render()
}

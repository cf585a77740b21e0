package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/BioHazard786/warpmeet/internal/meeting"
	"github.com/BioHazard786/warpmeet/internal/utils"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SummaryRow is one peer in the end-of-meeting table.
type SummaryRow struct {
	Record   meeting.PeerRecord
	Received int64
}

// RenderSummary writes the meeting summary to w.
func RenderSummary(w io.Writer, roomID string, duration time.Duration, rows []SummaryRow) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "%s Nobody else joined room %s.\n", IconInfo, roomID)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s Meeting %s (%s)", IconSummary, roomID, utils.FormatTimeDuration(duration)))
	t.AppendHeader(table.Row{"Peer", "Name", "Connected", "In call", "Sessions", "Failures", "Received"})

	var total int64
	for _, r := range rows {
		rec := r.Record
		name := rec.Name
		if name == "" {
			name = "-"
		}
		connected, inCall := "never", "-"
		if !rec.Connected.IsZero() {
			connected = rec.Connected.Format("15:04:05")
			end := rec.Left
			if end.IsZero() {
				end = time.Now()
			}
			inCall = utils.FormatTimeDuration(end.Sub(rec.Connected))
		}
		t.AppendRow(table.Row{rec.ID, name, connected, inCall, rec.Sessions, rec.Failures, utils.FormatSize(r.Received)})
		total += r.Received
	}

	t.AppendFooter(table.Row{"", "", "", "", "", "Total", utils.FormatSize(total)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()
}

// PrintStatus writes the slot table and header, for --plain mode.
func PrintStatus(w io.Writer, v MeetingView) {
	fmt.Fprintln(w, MeetingHeader(v))
	fmt.Fprintln(w, SlotTable(v.Slots))
}

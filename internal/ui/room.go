package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/BioHazard786/warpmeet/internal/media"
	"github.com/BioHazard786/warpmeet/internal/meeting"
	"github.com/BioHazard786/warpmeet/internal/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type RoomInfo struct {
	RoomID   string
	RoomLink string
}

func NewRoomInfo(roomID, roomLink string) *RoomInfo {
	return &RoomInfo{
		RoomID:   roomID,
		RoomLink: roomLink,
	}
}

func (r *RoomInfo) View() string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Room ID:    %s\n%s Room Link:  %s\n\n%s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconWeb, MutedStyle.Render(r.RoomLink),
		MutedStyle.Render("Share the id or link; up to 4 people can join."),
	)
	return SuccessBoxStyle.Render(content)
}

// SlotView is one display slot as shown to the user.
type SlotView struct {
	Slot    string
	Peer    string
	Name    string
	State   string
	Kinds   []string
	Bytes   int64
	Elapsed time.Duration
}

// MeetingView is everything the dashboard draws.
type MeetingView struct {
	RoomID   string
	LocalID  string
	Channel  meeting.ChannelState
	Members  int
	Capacity int
	Slots    []SlotView
}

// BuildView joins coordinator state with what the display is rendering.
func BuildView(st meeting.Status, stats []media.SlotStats) MeetingView {
	rendering := make(map[string]media.SlotStats, len(stats))
	for _, s := range stats {
		rendering[string(s.Slot)] = s
	}

	v := MeetingView{
		RoomID:   st.RoomID,
		LocalID:  st.LocalID,
		Channel:  st.Channel,
		Members:  len(st.Members) + 1,
		Capacity: st.Capacity,
	}
	for _, slot := range st.Slots {
		sv := SlotView{Slot: string(slot.ID), Peer: slot.Peer, Name: slot.Name}
		if slot.Peer != "" {
			sv.State = slot.State.String()
		}
		if r, ok := rendering[sv.Slot]; ok && r.Peer == slot.Peer {
			sv.Kinds = r.Kinds
			sv.Bytes = r.Bytes
			sv.Elapsed = r.Elapsed
		}
		v.Slots = append(v.Slots, sv)
	}
	return v
}

// SlotTable renders the slots as a lipgloss table.
func SlotTable(slots []SlotView) string {
	rows := make([][]string, 0, len(slots))
	for _, s := range slots {
		if s.Peer == "" {
			rows = append(rows, []string{s.Slot, IconEmpty, "", "", "", ""})
			continue
		}
		name := s.Name
		if name == "" {
			name = "-"
		}
		rows = append(rows, []string{
			s.Slot,
			utils.TruncateString(s.Peer, 17),
			utils.TruncateString(name, 16),
			s.State,
			strings.Join(s.Kinds, "+"),
			fmt.Sprintf("%s (%s)", utils.FormatSize(s.Bytes), utils.FormatBitrate(s.Bytes, s.Elapsed)),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Slot", "Peer", "Name", "State", "Media", "Received").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		}).
		Render()
}

// MeetingHeader is the one-line room status above the slot table.
func MeetingHeader(v MeetingView) string {
	var channel string
	switch v.Channel {
	case meeting.ChannelConnected:
		channel = SuccessStyle.Render(string(v.Channel))
	case meeting.ChannelReconnecting, meeting.ChannelConnecting:
		channel = WarningStyle.Render(string(v.Channel))
	default:
		channel = ErrorStyle.Render(string(v.Channel))
	}

	return fmt.Sprintf("%s %s  %s %s  %s %d/%d  relay: %s",
		IconRoom, StatusStyle.Render(v.RoomID),
		IconPeer, MutedStyle.Render(v.LocalID),
		IconCamera, v.Members, v.Capacity,
		channel,
	)
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BioHazard786/warpmeet/internal/config"
	"github.com/BioHazard786/warpmeet/internal/logging"
	"github.com/BioHazard786/warpmeet/internal/media"
	"github.com/BioHazard786/warpmeet/internal/meeting"
	"github.com/BioHazard786/warpmeet/internal/peer"
	"github.com/BioHazard786/warpmeet/internal/signaling"
	"github.com/BioHazard786/warpmeet/internal/ui"
	"github.com/BioHazard786/warpmeet/internal/version"
	"github.com/BioHazard786/warpmeet/internal/webrtc"
)

const plainStatusInterval = 5 * time.Second

// runMeeting joins roomID and blocks until the user leaves or the relay is
// gone for good, then prints a summary of who was seen.
func runMeeting(cfg *config.Config, roomID string, plain bool) error {
	sp := ui.NewConnectionSpinner("Preparing media...")
	sp.Start()
	source, err := media.Open(cfg.VideoFile, cfg.AudioFile)
	if err != nil {
		sp.Error("Could not open local media")
		return meeting.NewError("acquire media", err)
	}
	defer source.Close()

	api, err := webrtc.NewAPI(logging.NewPionFactory(slog.Default()))
	if err != nil {
		sp.Error("Could not set up WebRTC")
		return meeting.NewError("create webrtc api", err)
	}
	factory := webrtc.NewFactory(api, webrtc.ICEServers(cfg), peer.Info{
		Name:    cfg.DisplayName,
		Version: version.Version,
	})

	localID := meeting.NewParticipantID()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sp.UpdateMessage("Connecting to room relay...")
	client, err := signaling.Dial(ctx, signaling.Options{
		URL:            cfg.JoinRoomURL(roomID),
		LocalID:        localID,
		ReconnectDelay: cfg.ReconnectDelay,
	})
	if err != nil {
		sp.Error("Could not reach the room relay")
		return meeting.NewError("join room", err)
	}
	sp.Success(fmt.Sprintf("Joined room %s as %s", roomID, localID))
	defer client.Close()

	display := media.NewDisplay()
	sess := meeting.New(meeting.Options{
		LocalID:  localID,
		RoomID:   roomID,
		Channel:  client,
		Factory:  factory,
		Tracks:   source.Tracks(),
		Display:  display,
		Slots:    cfg.DisplaySlots,
		Capacity: cfg.MaxParticipants,
	})

	source.Start(ctx)
	started := time.Now()

	view := func() ui.MeetingView {
		return ui.BuildView(sess.Status(), display.Stats())
	}

	var dash *ui.Dashboard
	if plain {
		ui.PrintInfo("Press Ctrl+C to leave the meeting")
		go printStatusLoop(ctx, view)
	} else {
		dash = ui.NewDashboard(view, stop)
		dash.Start()
	}

	runErr := sess.Run(ctx)
	stop()
	// The dashboard owns the terminal until it stops.
	if dash != nil {
		dash.Stop()
	}

	var rows []ui.SummaryRow
	for _, rec := range sess.History().Records() {
		rows = append(rows, ui.SummaryRow{Record: rec, Received: display.Received(rec.ID)})
	}
	fmt.Println()
	ui.RenderSummary(os.Stdout, roomID, time.Since(started), rows)

	return runErr
}

func printStatusLoop(ctx context.Context, view func() ui.MeetingView) {
	ticker := time.NewTicker(plainStatusInterval)
	defer ticker.Stop()

	ui.PrintStatus(os.Stdout, view())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ui.PrintStatus(os.Stdout, view())
		}
	}
}

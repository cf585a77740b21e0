package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/BioHazard786/warpmeet/internal/meeting"
	"github.com/BioHazard786/warpmeet/internal/signaling"
	"github.com/BioHazard786/warpmeet/internal/ui"
	"github.com/spf13/cobra"
)

const createTimeout = 15 * time.Second

var createFlags meetingFlags

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a room and join it",
	Long: `Create a new room on the relay, print its id and link, and join it.

Examples:
  warpmeet create
  warpmeet create --name alice --video camera.ivf --audio mic.ogg
  warpmeet create --server https://meet.example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return createAndJoin()
	},
}

func createAndJoin() error {
	cfg, err := createFlags.load()
	if err != nil {
		return err
	}

	sp := ui.NewConnectionSpinner("Creating room...")
	sp.Start()
	ctx, cancel := context.WithTimeout(context.Background(), createTimeout)
	roomID, err := signaling.CreateRoom(ctx, cfg.CreateRoomURL())
	cancel()
	if err != nil {
		sp.Error("Could not create a room")
		return meeting.NewError("create room", err)
	}
	sp.Stop()

	fmt.Println()
	fmt.Println(ui.NewRoomInfo(roomID, cfg.GetRoomLink(roomID)).View())

	return runMeeting(cfg, roomID, createFlags.plain)
}

func init() {
	rootCmd.AddCommand(createCmd)
	createFlags.register(createCmd)
}

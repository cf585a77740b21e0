package cmd

import (
	"github.com/BioHazard786/warpmeet/internal/config"
	"github.com/BioHazard786/warpmeet/internal/ui"
	"github.com/spf13/cobra"
)

var joinFlags meetingFlags

var joinCmd = &cobra.Command{
	Use:     "join <room-id|link>",
	Aliases: []string{"j"},
	Short:   "Join an existing room",
	Long: `Join a room created by someone else, by id or by link.

Examples:
  warpmeet join Ab3dEf9h
  warpmeet join "https://meet.example.com/join-room?roomID=Ab3dEf9h"
  warpmeet join Ab3dEf9h --plain`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var input string
		if len(args) > 0 {
			input = args[0]
		}
		return joinRoom(input)
	},
}

func joinRoom(input string) error {
	roomID := config.ParseRoomCode(input)
	if roomID == "" {
		ui.PrintWarning("No room id given. Pass a room id or link, or run 'warpmeet create'.")
		return nil
	}

	cfg, err := joinFlags.load()
	if err != nil {
		return err
	}
	return runMeeting(cfg, roomID, joinFlags.plain)
}

func init() {
	rootCmd.AddCommand(joinCmd)
	joinFlags.register(joinCmd)
}

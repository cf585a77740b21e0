package cmd

import (
	"github.com/BioHazard786/warpmeet/internal/config"
	"github.com/BioHazard786/warpmeet/internal/meeting"
	"github.com/spf13/cobra"
)

// meetingFlags are shared by every command that joins a room.
type meetingFlags struct {
	server   string
	stun     string
	turn     string
	turnUser string
	turnPass string
	name     string
	video    string
	audio    string
	plain    bool
}

func (f *meetingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", "", "Room relay base URL")
	cmd.Flags().StringVarP(&f.stun, "stun", "s", "", "Custom STUN server")
	cmd.Flags().StringVarP(&f.turn, "turn", "t", "", "Custom TURN server")
	cmd.Flags().StringVarP(&f.turnUser, "turn-user", "u", "", "TURN username")
	cmd.Flags().StringVarP(&f.turnPass, "turn-pass", "p", "", "TURN password")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Display name shown to others")
	cmd.Flags().StringVar(&f.video, "video", "", "VP8 IVF file to send as video")
	cmd.Flags().StringVar(&f.audio, "audio", "", "Opus Ogg file to send as audio")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "Print status lines instead of the live dashboard")
}

func (f *meetingFlags) load() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		Server:      f.server,
		STUNServer:  f.stun,
		TURNServer:  f.turn,
		TURNUser:    f.turnUser,
		TURNPass:    f.turnPass,
		DisplayName: f.name,
		VideoFile:   f.video,
		AudioFile:   f.audio,
	})
	if err != nil {
		return nil, meeting.NewError("load config", err)
	}
	return cfg, nil
}

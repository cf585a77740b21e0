package cmd

import (
	"os"

	"github.com/BioHazard786/warpmeet/internal/ui"
	"github.com/BioHazard786/warpmeet/internal/version"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warpmeet",
	Short: "Peer-to-peer video meetings for up to four people using WebRTC",
	Long: `warpmeet connects up to four participants in a full mesh of direct WebRTC sessions.
A small room relay carries only the negotiation messages; audio and video flow
directly between participants.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

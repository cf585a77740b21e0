package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/BioHazard786/warpmeet/internal/config"
	"github.com/BioHazard786/warpmeet/internal/relay"
	"github.com/spf13/cobra"
)

var (
	flagRelayAddr  string
	flagRelayRedis string
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the room relay",
	Long: `Run the room relay that hands out room ids and forwards negotiation
messages between participants. Media never passes through it.

Examples:
  warpmeet relay
  warpmeet relay --addr :9000
  warpmeet relay --redis localhost:6379`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadRelay(config.RelayOptions{
			Addr:      flagRelayAddr,
			RedisAddr: flagRelayRedis,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return relay.Run(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)

	relayCmd.Flags().StringVarP(&flagRelayAddr, "addr", "a", "", "Listen address (default :8080 or $PORT)")
	relayCmd.Flags().StringVar(&flagRelayRedis, "redis", "", "Redis address for the room directory")
}

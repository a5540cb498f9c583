package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var keepaliveCmd = &cobra.Command{
	Use:   "keepalive",
	Short: "Run the warm-up loop in the foreground",
	Long: `Keepalive periodically probes the embedding and generation backends
and runs a trivial index query so models and index memory stay resident
between queries. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if keepaliveRunner == nil {
			return errors.New("keepalive not initialized")
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		cmd.Println("Keepalive running, press Ctrl+C to stop.")
		if err := keepaliveRunner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		if tick, ok := keepaliveRunner.LastTick(); ok {
			if tick.Healthy() {
				cmd.Println("Last tick: healthy")
			} else {
				cmd.Printf("Last tick: unhealthy (%s)\n", tick.Err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keepaliveCmd)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pondelion/mplm/internal/events"
)

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print transition events published by running builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.NATSURL == "" {
				return fmt.Errorf("nats_url is not configured (NATS_URL)")
			}

			bus, err := events.NewNATSBus(events.NATSConfig{URL: cfg.NATSURL, Subject: cfg.NATSSubject})
			if err != nil {
				return err
			}
			defer bus.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			_, err = bus.Subscribe(ctx, func(evt events.Event) {
				line := fmt.Sprintf("%s run=%s %s -> %s status=%s retry=%d",
					evt.Timestamp.Local().Format("15:04:05"), evt.RunID, evt.From, evt.To, evt.Status, evt.RetryCount)
				if evt.Error != "" {
					line += " error=" + truncate(evt.Error, 80)
				}
				fmt.Println(line)
			})
			if err != nil {
				return err
			}

			fmt.Printf("Watching %s on %s (ctrl+c to stop)\n", cfg.NATSSubject, cfg.NATSURL)
			<-ctx.Done()
			return nil
		},
	}
}

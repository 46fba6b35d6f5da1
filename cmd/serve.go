package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/toolbridge/toolbridge/internal/dependency"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the tool server and run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		container, err := dependency.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := container.Client()
		if err != nil {
			return err
		}
		if err := client.Connect(ctx, cfg.Tools.ServerScript); err != nil {
			return err
		}
		defer client.Shutdown()

		server, err := container.Server()
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Start(ctx)
		})
		if cfg.Logs.RetentionDays > 0 {
			sweeper, err := container.Sweeper()
			if err != nil {
				return err
			}
			g.Go(func() error {
				return sweeper.Start(ctx, cfg.Logs.Sweep)
			})
		} else {
			slog.Info("conversation log retention disabled")
		}

		return g.Wait()
	},
}

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toolbridge/toolbridge/internal/dependency"
	"github.com/toolbridge/toolbridge/internal/schema"
)

var askMessage string

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Run a single query against the tool server from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(askMessage)
		if query == "" {
			query = strings.TrimSpace(strings.Join(args, " "))
		}
		if query == "" {
			return fmt.Errorf("nothing to ask: pass -m or positional text")
		}

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

		loop, err := container.Loop()
		if err != nil {
			return err
		}

		produced, _, err := loop.Run(ctx, nil, query, nil)
		if err != nil {
			return err
		}

		for _, m := range produced {
			if m.Role != schema.RoleAssistant {
				continue
			}
			if text := m.Text(); text != "" {
				fmt.Println(text)
				continue
			}
			for _, b := range m.Blocks() {
				if b.Type == schema.BlockText && b.Text != "" {
					fmt.Println(b.Text)
				}
			}
		}
		return nil
	},
}

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toolbridge/toolbridge/internal/config"
	"github.com/toolbridge/toolbridge/internal/mcp"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Connect to the tool server and list its tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Listing tools only needs the subprocess, not the model API key.
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Tools.ServerScript == "" {
			return fmt.Errorf("no tool server script configured (set tools.serverScript or TOOLBRIDGE_SERVER_SCRIPT)")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := mcp.NewClient()
		if err := client.Connect(ctx, cfg.Tools.ServerScript); err != nil {
			return err
		}
		defer client.Shutdown()

		catalog, err := client.Tools()
		if err != nil {
			return err
		}
		if len(catalog) == 0 {
			fmt.Println("The tool server exposes no tools.")
			return nil
		}
		for _, t := range catalog {
			fmt.Printf("%s\t%s\n", t.Name, t.Description)
		}
		return nil
	},
}

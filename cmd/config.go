package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/toolbridge/toolbridge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize the configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.ConfigPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}

		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, path); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		fmt.Printf("server.addr:         %s\n", cfg.Server.Addr)
		fmt.Printf("anthropic.model:     %s\n", cfg.Anthropic.Model)
		fmt.Printf("anthropic.maxTokens: %d\n", cfg.Anthropic.MaxTokens)
		fmt.Printf("anthropic.apiKey:    %s\n", maskKey(cfg.Anthropic.APIKey))
		fmt.Printf("tools.serverScript:  %s\n", cfg.Tools.ServerScript)
		fmt.Printf("tools.maxIter:       %d\n", cfg.Tools.MaxIter)
		fmt.Printf("logs.dir:            %s\n", cfg.Logs.Dir)
		fmt.Printf("logs.retentionDays:  %d\n", cfg.Logs.RetentionDays)
		fmt.Printf("logs.sweep:          %s\n", cfg.Logs.Sweep)
		return nil
	},
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

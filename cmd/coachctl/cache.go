package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxicoach/backend/internal/cache/redis"
	"github.com/maxicoach/backend/pkg/config"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Redis cache maintenance",
	}
	cmd.AddCommand(newFlushAudioCmd())
	return cmd
}

func newFlushAudioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-audio",
		Short: "Delete every cached speech clip",
		Long:  "Run after editing the knowledge base or the voice map so stale audio is not replayed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadForTools()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.Redis.Enabled {
				return fmt.Errorf("redis is not enabled in the configuration")
			}

			client, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				return err
			}
			defer client.Close()

			deleted, err := client.InvalidateAudio(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d cached clips\n", deleted)
			return nil
		},
	}
}

package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the sample cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache driver and entry count",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cache"); err != nil {
			return err
		}
		ctx := cmd.Context()

		c, err := openCache(ctx)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		defer c.Close() //nolint:errcheck

		entries, err := c.Size(ctx)
		if err != nil {
			return eris.Wrap(err, "count cache entries")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"driver":  cfg.Cache.Driver,
			"entries": entries,
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached sample",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cache"); err != nil {
			return err
		}
		ctx := cmd.Context()

		c, err := openCache(ctx)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		defer c.Close() //nolint:errcheck

		if err := c.Clear(ctx); err != nil {
			return eris.Wrap(err, "clear cache")
		}

		zap.L().Info("sample cache cleared", zap.String("driver", cfg.Cache.Driver))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

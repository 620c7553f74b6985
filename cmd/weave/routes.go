package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goweave/weave"
)

func newRoutesCmd(configPath *string) *cobra.Command {
	var cachePath string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the cached route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cachePath
			if path == "" {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					return err
				}
				path = cfg.RouteCache
			}

			routes, err := weave.LoadRoutes(path)
			if err != nil {
				return err
			}

			for _, rt := range routes {
				line := fmt.Sprintf("%-6s %-40s %s", rt.Method, rt.Pattern, rt.Handler)
				if len(rt.HookNames) > 0 {
					line += "  [" + strings.Join(rt.HookNames, ", ") + "]"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d routes\n", len(routes))
			return nil
		},
	}
	cmd.Flags().StringVar(&cachePath, "cache", "", "route cache file (overrides config)")

	return cmd
}

func newCacheCmd(configPath *string) *cobra.Command {
	var cachePath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the route cache",
	}
	cmd.PersistentFlags().StringVar(&cachePath, "cache", "", "route cache file (overrides config)")

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Delete the route cache file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cachePath
			if path == "" {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					return err
				}
				path = cfg.RouteCache
			}

			if err := weave.ClearRouteCache(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "route cache cleared: %s\n", path)
			return nil
		},
	}
	cmd.AddCommand(clear)

	return cmd
}

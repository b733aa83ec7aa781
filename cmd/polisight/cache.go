package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func cacheCMD() *cobra.Command {
	var cfgPath string
	var showStats bool
	var cleanup bool
	var clear bool

	var cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the dedup/cache layer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !showStats && !cleanup && !clear {
				return cmd.Usage()
			}
			ctx := context.Background()
			a, err := newApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if clear {
				n, err := a.cache.Clear(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("cleared %d entries\n", n)
				return nil
			}
			if cleanup {
				res, err := a.cache.Sweep(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("purged=%d demoted=%d archived=%d\n", res.Purged, res.Demoted, res.Archived)
			}
			if showStats {
				return printJSON(a.cache.Stats())
			}
			return nil
		},
	}
	cacheCmd.Flags().BoolVar(&showStats, "stats", false, "print entry counts per tier and recent activity")
	cacheCmd.Flags().BoolVar(&cleanup, "cleanup", false, "purge expired entries and apply tier transitions")
	cacheCmd.Flags().BoolVar(&clear, "clear", false, "drop every cached entry")
	cacheCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return cacheCmd
}

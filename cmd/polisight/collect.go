package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func collectCMD() *cobra.Command {
	var cfgPath string
	var maxPerSource int
	var collect = &cobra.Command{
		Use:   "collect [query]",
		Short: "Collect and deduplicate items from all configured sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			res, err := a.agg.Collect(ctx, args[0], a.registry.All(), maxPerSource)
			if err != nil {
				return err
			}
			fmt.Printf("collected %d items from %d sources (%d failures) in %s\n",
				res.TotalItems(), len(res.Items), len(res.Failures), res.Duration)
			return printJSON(res)
		},
	}
	collect.Flags().IntVar(&maxPerSource, "max", 20, "max results per source")
	collect.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return collect
}

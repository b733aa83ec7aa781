package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/polisight/internal/index"
)

func searchCMD() *cobra.Command {
	var cfgPath string
	var k int
	var search = &cobra.Command{
		Use:   "search [query]",
		Short: "Full-text search over cached items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			idx, err := index.New()
			if err != nil {
				return err
			}
			if err := idx.AddBatch(a.cache.Items()); err != nil {
				return err
			}
			hits, err := idx.Search(args[0], k)
			if err != nil {
				return err
			}
			return printJSON(hits)
		},
	}
	search.Flags().IntVar(&k, "k", 10, "max hits")
	search.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return search
}

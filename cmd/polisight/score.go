package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/polisight/internal/item"
)

func scoreCMD() *cobra.Command {
	var cfgPath string
	var text string
	var sourceID string
	var maxPerSource int
	var score = &cobra.Command{
		Use:   "score [query]",
		Short: "Score collected items for sentiment, bias and reliability",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if text != "" {
				scored, err := a.scorer.Score(ctx, item.RawItem{
					ID:          "inline",
					SourceID:    sourceID,
					Text:        text,
					PublishedAt: time.Now(),
					CollectedAt: time.Now(),
				})
				if err != nil {
					return err
				}
				return printJSON(scored)
			}
			if len(args) == 0 {
				return cmd.Usage()
			}
			scored, err := a.collectScored(ctx, args[0], maxPerSource)
			if err != nil {
				return err
			}
			return printJSON(scored)
		},
	}
	score.Flags().StringVar(&text, "text", "", "score a single inline text instead of a query")
	score.Flags().StringVar(&sourceID, "source", "", "source id for inline text")
	score.Flags().IntVar(&maxPerSource, "max", 20, "max results per source")
	score.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return score
}

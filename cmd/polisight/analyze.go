package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/polisight/internal/predict"
)

func analyzeCMD() *cobra.Command {
	var cfgPath string
	var baseline float64
	var horizon int
	var severity float64
	var policyBaseline float64
	var sharesJSON string

	var analyze = &cobra.Command{
		Use:   "analyze [query]",
		Short: "Run the comprehensive analysis (support + election + optional policy/scandal)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			fillBaseline(ctx, a, &baseline, "support_rating", "cabinet")
			fillHorizon(a, &horizon)
			shares, err := loadShares(ctx, a, sharesJSON)
			if err != nil {
				return err
			}
			scored, err := a.collectScored(ctx, args[0], 0)
			if err != nil {
				return err
			}
			report, err := a.predictor.Comprehensive(predict.ComprehensiveInput{
				BaselineSupport: baseline,
				BaselineShares:  shares,
				Items:           scored,
				HorizonDays:     horizon,
				ScandalSeverity: severity,
				PolicyBaseline:  policyBaseline,
			})
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	analyze.Flags().Float64Var(&baseline, "baseline", 0, "current support baseline in [0,1]")
	analyze.Flags().IntVar(&horizon, "horizon", 0, "forecast horizon in days (default from config)")
	analyze.Flags().Float64Var(&severity, "scandal-severity", 0, "active scandal severity in [0,1] (0 = none)")
	analyze.Flags().Float64Var(&policyBaseline, "policy-baseline", 0, "policy approval baseline (0 skips the policy forecast)")
	analyze.Flags().StringVar(&sharesJSON, "shares", "", "baseline vote shares as JSON")
	analyze.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return analyze
}

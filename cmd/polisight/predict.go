package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/polisight/internal/history"
	"github.com/mohammad-safakhou/polisight/internal/predict"
)

func predictCMD() *cobra.Command {
	var cfgPath string
	var baseline float64
	var horizon int
	var severity float64
	var sharesJSON string

	var root = &cobra.Command{
		Use:   "predict",
		Short: "Run a forecast (support, election, policy, scandal)",
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	root.PersistentFlags().Float64Var(&baseline, "baseline", 0, "current baseline value in [0,1]")
	root.PersistentFlags().IntVar(&horizon, "horizon", 0, "forecast horizon in days (default from config)")

	support := &cobra.Command{
		Use:   "support [query]",
		Short: "Forecast the approval-rating trajectory",
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
			scored, err := a.collectScored(ctx, args[0], 0)
			if err != nil {
				return err
			}
			result, err := a.predictor.Support(baseline, scored, horizon)
			if err != nil {
				return err
			}
			appendHistory(ctx, a, result)
			return printJSON(result)
		},
	}

	policy := &cobra.Command{
		Use:   "policy [query]",
		Short: "Forecast the approval trajectory of a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			fillBaseline(ctx, a, &baseline, "policy_approval", args[0])
			fillHorizon(a, &horizon)
			scored, err := a.collectScored(ctx, args[0], 0)
			if err != nil {
				return err
			}
			result, err := a.predictor.Policy(baseline, scored, horizon)
			if err != nil {
				return err
			}
			appendHistory(ctx, a, result)
			return printJSON(result)
		},
	}

	election := &cobra.Command{
		Use:   "election [query]",
		Short: "Forecast vote shares and allocate seats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, cfgPath)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			shares, err := loadShares(ctx, a, sharesJSON)
			if err != nil {
				return err
			}
			fillHorizon(a, &horizon)
			scored, err := a.collectScored(ctx, args[0], 0)
			if err != nil {
				return err
			}
			result, err := a.predictor.Election(shares, scored, horizon, nil)
			if err != nil {
				return err
			}
			appendHistory(ctx, a, result.PredictionResult)
			return printJSON(result)
		},
	}
	election.Flags().StringVar(&sharesJSON, "shares", "", `baseline vote shares as JSON, e.g. '{"ldp":0.34,"cdp":0.21}'`)

	scandal := &cobra.Command{
		Use:   "scandal [query]",
		Short: "Forecast the support impact of a scandal",
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
			scored, err := a.collectScored(ctx, args[0], 0)
			if err != nil {
				return err
			}
			result, err := a.predictor.Scandal(baseline, scored, horizon, severity)
			if err != nil {
				return err
			}
			appendHistory(ctx, a, result.PredictionResult)
			return printJSON(result)
		},
	}
	scandal.Flags().Float64Var(&severity, "severity", 0.5, "scandal severity in [0,1]")

	root.AddCommand(support, election, policy, scandal)
	return root
}

func fillBaseline(ctx context.Context, a *app, baseline *float64, kind, name string) {
	if *baseline != 0 || a.store == nil {
		return
	}
	if v, err := a.store.LoadBaseline(ctx, kind, name); err == nil {
		*baseline = v
	}
}

func fillHorizon(a *app, horizon *int) {
	if *horizon <= 0 {
		*horizon = a.cfg.Prediction.DefaultHorizonDays
	}
}

func loadShares(ctx context.Context, a *app, sharesJSON string) (map[string]float64, error) {
	if sharesJSON != "" {
		var shares map[string]float64
		if err := json.Unmarshal([]byte(sharesJSON), &shares); err != nil {
			return nil, fmt.Errorf("parse --shares: %w", err)
		}
		return shares, nil
	}
	if a.store == nil {
		return nil, fmt.Errorf("no --shares given and history store unavailable")
	}
	shares, err := a.store.LoadBaselines(ctx, "vote_share")
	if err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("no stored vote-share baselines; pass --shares")
	}
	return shares, nil
}

func appendHistory(ctx context.Context, a *app, result predict.PredictionResult) {
	if a.store == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if _, err := a.store.AppendPrediction(ctx, history.PredictionRecord{
		Type:        result.Type,
		Baseline:    result.Baseline,
		Predicted:   result.Predicted,
		HorizonDays: result.HorizonDays,
		Confidence:  result.Confidence,
		Result:      payload,
	}); err != nil {
		a.logger.Printf("append history failed: %v", err)
	}
}

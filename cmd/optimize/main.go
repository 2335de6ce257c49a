package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/juanluis911/TradingLatino/config"
	"github.com/juanluis911/TradingLatino/internal/adapters/logger"
	"github.com/juanluis911/TradingLatino/internal/app"
	"github.com/juanluis911/TradingLatino/internal/strategy/optimization"
)

func main() {
	cmd := &cli.Command{
		Name:  "optimize",
		Usage: "Sweep simulator parameters over a grid and rank the runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Directory containing config.yml",
				Value:   ".",
			},
			&cli.StringSliceFlag{
				Name:     "param",
				Aliases:  []string{"p"},
				Usage:    "Parameter range name=min:max:step, e.g. stop_loss_pct=0.01:0.03:0.005",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent simulations (0 for one per CPU)",
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Number of results to print",
				Value: 10,
			},
		},
		Action: optimizeAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func optimizeAction(ctx context.Context, cmd *cli.Command) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	// Per-combination exports are not wanted
	cfg.Export.Dir = ""
	cfg.Database.Path = ""

	var ranges []optimization.ParameterRange
	for _, expr := range cmd.StringSlice("param") {
		r, err := optimization.ParseRange(expr)
		if err != nil {
			return err
		}
		ranges = append(ranges, r)
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(logger.ParseLevel(cfg.Logger.Level), cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	// 3. Wire components
	components, err := app.Build(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize backtester: %w", err)
	}
	defer components.Close()

	optimizer, err := optimization.NewOptimizer(optimization.OptimizerConfig{
		Base:            cfg.Simulator,
		BaseRisk:        cfg.Risk,
		ParameterRanges: ranges,
		Workers:         int(cmd.Int("workers")),
		Logger:          appLogger,
	}, components.Engine, components.Generator)
	if err != nil {
		return err
	}

	// 4. Load history once and sweep
	params, data, err := components.Service.LoadHistory(ctx, app.RequestFromConfig(cfg.Backtest))
	if err != nil {
		return err
	}
	results, err := optimizer.Optimize(ctx, params, data)
	if err != nil {
		return err
	}

	top := max(0, min(int(cmd.Int("top")), len(results)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Rank\tScore\tParameters\tTrades\tWinRate\tReturn%\tMaxDD%\tSharpe")
	for i, r := range results[:top] {
		s := r.Summary
		fmt.Fprintf(w, "%d\t%.3f\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
			i+1, r.Score, formatParams(r.Parameters), s.TotalTrades, s.WinRate, s.TotalReturnPct, s.MaxDrawdownPct, s.SharpeRatio)
	}
	return w.Flush()
}

func formatParams(params map[string]float64) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%g", name, params[name])
	}
	return strings.Join(parts, " ")
}

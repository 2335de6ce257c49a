package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/juanluis911/TradingLatino/internal/adapters/export"
	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/utils"
)

func main() {
	cmd := &cli.Command{
		Name:      "analyze_backtests",
		Usage:     "Compare exported backtest results",
		ArgsUsage: "[file.json ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory scanned for backtest_*.json exports when no files are given",
				Value:   "results",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Also write each trade ledger as CSV next to its export",
			},
		},
		Action: analyzeAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func analyzeAction(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		found, err := findBacktestFiles(cmd.String("dir"), "backtest_")
		if err != nil {
			return fmt.Errorf("finding backtest files: %w", err)
		}
		files = found
	}
	if len(files) == 0 {
		log.Println("No backtest exports found. Run the backtest runner first.")
		return nil
	}

	var docs []*export.Document
	var names []string
	for _, file := range files {
		doc, err := export.Load(file)
		if err != nil {
			log.Printf("Error reading %s: %v", file, err)
			continue
		}
		docs = append(docs, doc)
		names = append(names, filepath.Base(file))

		if cmd.Bool("csv") {
			out := strings.TrimSuffix(file, filepath.Ext(file)) + "_trades.csv"
			if err := utils.WriteTradesToCSV(doc.Trades, out); err != nil {
				log.Printf("Error writing %s: %v", out, err)
			}
		}
	}

	writeSummaryTable(os.Stdout, names, docs)

	fmt.Println("\n## Exit Reason Analysis")
	for i, doc := range docs {
		fmt.Printf("\nFile: %s\n", names[i])
		writeReasonTable(os.Stdout, reasonBreakdown(doc.Trades))
	}
	return nil
}

func writeSummaryTable(out io.Writer, names []string, docs []*export.Document) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "File\tTrades\tWinRate\tFinal\tReturn\tReturn%\tMaxDD%\tSharpe\tCalmar\t")
	for i, doc := range docs {
		s := doc.Results
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			names[i],
			s.TotalTrades,
			money(s.WinRate),
			money(s.FinalCapital),
			money(s.TotalReturn),
			money(s.TotalReturnPct),
			money(s.MaxDrawdownPct),
			money(s.SharpeRatio),
			money(s.CalmarRatio),
		)
	}
	w.Flush()
}

// ReasonStats aggregates the trades closed for one exit reason.
type ReasonStats struct {
	Reason domain.ExitReason
	Count  int
	PnL    decimal.Decimal
}

// Avg is the mean P&L per trade.
func (r ReasonStats) Avg() decimal.Decimal {
	if r.Count == 0 {
		return decimal.Zero
	}
	return r.PnL.Div(decimal.NewFromInt(int64(r.Count)))
}

// reasonBreakdown groups trades by exit reason, sorted by reason.
func reasonBreakdown(trades []*domain.Trade) []ReasonStats {
	byReason := make(map[domain.ExitReason]*ReasonStats)
	for _, t := range trades {
		rs, ok := byReason[t.ExitReason]
		if !ok {
			rs = &ReasonStats{Reason: t.ExitReason, PnL: decimal.Zero}
			byReason[t.ExitReason] = rs
		}
		rs.Count++
		rs.PnL = rs.PnL.Add(decimal.NewFromFloat(t.PnL))
	}

	out := make([]ReasonStats, 0, len(byReason))
	for _, rs := range byReason {
		out = append(out, *rs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reason < out[j].Reason })
	return out
}

func writeReasonTable(out io.Writer, stats []ReasonStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Exit Reason\tCount\tTotal PnL\tAvg PnL")
	for _, rs := range stats {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", rs.Reason, rs.Count, rs.PnL.StringFixed(2), rs.Avg().StringFixed(2))
	}
	w.Flush()
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// findBacktestFiles finds all JSON exports in the specified directory, oldest name first.
func findBacktestFiles(dir, prefix string) ([]string, error) {
	var files []string

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ".json") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

// Drawdown represents a drawdown period
type Drawdown struct {
	StartTime  time.Time
	EndTime    time.Time
	StartValue float64
	EndValue   float64
	Depth      float64
	Duration   time.Duration
}

// EquityPoint represents a point on the equity curve
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// MonthlyReturn represents a monthly return value
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}

// Summarize aggregates a finished run. It does not modify the run.
func Summarize(run *domain.Run) *domain.Summary {
	initial := run.Params.InitialCapital
	trades := run.Closed

	summary := &domain.Summary{
		StartDate:         run.Params.Start,
		EndDate:           run.Params.End,
		InitialCapital:    initial,
		SymbolsTested:     append([]string(nil), run.Params.Symbols...),
		FinalCapital:      run.Capital,
		TotalReturn:       run.Capital - initial,
		ExitReasons:       make(map[domain.ExitReason]int),
		MethodologyChecks: make(map[string]float64),
		SkippedSymbols:    append([]domain.SymbolError{}, run.Skipped...),
	}
	if summary.SymbolsTested == nil {
		summary.SymbolsTested = []string{}
	}
	if n := len(run.Equity); n > 0 {
		if summary.StartDate.IsZero() {
			summary.StartDate = run.Equity[0].Time
		}
		if summary.EndDate.IsZero() {
			summary.EndDate = run.Equity[n-1].Time
		}
	}
	if initial > 0 {
		summary.TotalReturnPct = summary.TotalReturn / initial * 100
	}

	summary.TotalTrades = len(trades)
	summary.WinningTrades = countWins(trades)
	summary.LosingTrades = summary.TotalTrades - summary.WinningTrades
	summary.WinRate = winRate(trades)

	dd, peak := maxDrawdown(run.Equity, initial)
	summary.MaxDrawdownPct = dd * 100
	summary.MaxDrawdown = dd * peak
	summary.SharpeRatio = sharpe(run.Equity)
	if summary.MaxDrawdownPct > 0 {
		summary.CalmarRatio = summary.TotalReturnPct / summary.MaxDrawdownPct
	}

	if len(trades) > 0 {
		var duration, rr float64
		var wins, losses []float64
		summary.BestTrade = math.Inf(-1)
		summary.WorstTrade = math.Inf(1)
		for _, t := range trades {
			duration += t.DurationHours
			rr += t.RiskRewardAchieved
			switch {
			case t.PnL > 0:
				wins = append(wins, t.PnL)
			case t.PnL < 0:
				losses = append(losses, t.PnL)
			}
			summary.BestTrade = math.Max(summary.BestTrade, t.PnL)
			summary.WorstTrade = math.Min(summary.WorstTrade, t.PnL)
			summary.ExitReasons[t.ExitReason]++
		}
		n := float64(len(trades))
		summary.AvgTradeDurationHour = duration / n
		summary.AvgRiskReward = rr / n
		summary.AvgWin = mean(wins)
		summary.AvgLoss = mean(losses)
	}

	summary.HighStrengthTrades, summary.HighStrengthWinRate = bucket(trades, func(t *domain.Trade) bool { return t.Strength >= 80 })
	summary.MediumStrengthTrades, summary.MediumStrengthWinRate = bucket(trades, func(t *domain.Trade) bool { return t.Strength >= 60 && t.Strength < 80 })
	summary.LowStrengthTrades, summary.LowStrengthWinRate = bucket(trades, func(t *domain.Trade) bool { return t.Strength >= 50 && t.Strength < 60 })
	summary.FourConfluenceTrades, summary.FourConfluenceWinRate = bucket(trades, func(t *domain.Trade) bool { return t.Confluence == 4 })
	summary.ThreeConfluenceTrades, summary.ThreeConfluenceWinRate = bucket(trades, func(t *domain.Trade) bool { return t.Confluence == 3 })
	summary.TwoConfluenceTrades, summary.TwoConfluenceWinRate = bucket(trades, func(t *domain.Trade) bool { return t.Confluence == 2 })

	summary.MethodologyChecks["discipline_over_analysis"] = summary.WinRate
	summary.MethodologyChecks["risk_management_effectiveness"] = summary.MaxDrawdownPct
	summary.MethodologyChecks["contrarian_success"] = summary.WinRate
	summary.MethodologyChecks["high_probability_focus"] = summary.HighStrengthWinRate
	summary.MethodologyChecks["confluence_importance"] = summary.FourConfluenceWinRate

	return summary
}

// EquityCurve annotates every equity sample with its drawdown from the running
// peak, which starts at the initial capital, and collects the drawdown periods.
func EquityCurve(run *domain.Run) ([]EquityPoint, []Drawdown) {
	curve := make([]EquityPoint, 0, len(run.Equity))
	drawdowns := make([]Drawdown, 0)

	peak := run.Params.InitialCapital
	var current *Drawdown
	for _, p := range run.Equity {
		if p.Value >= peak {
			peak = p.Value
			if current != nil {
				current.EndTime = p.Time
				current.EndValue = p.Value
				current.Duration = current.EndTime.Sub(current.StartTime)
				drawdowns = append(drawdowns, *current)
				current = nil
			}
		} else {
			depth := (peak - p.Value) / peak
			if current == nil {
				current = &Drawdown{StartTime: p.Time, StartValue: peak, Depth: depth}
			} else {
				current.Depth = math.Max(current.Depth, depth)
			}
		}

		dd := 0.0
		if peak > 0 {
			dd = (peak - p.Value) / peak
		}
		curve = append(curve, EquityPoint{Time: p.Time, Value: p.Value, Drawdown: dd})
	}

	// Close any open drawdown
	if current != nil {
		last := run.Equity[len(run.Equity)-1]
		current.EndTime = last.Time
		current.EndValue = last.Value
		current.Duration = current.EndTime.Sub(current.StartTime)
		drawdowns = append(drawdowns, *current)
	}
	return curve, drawdowns
}

// MonthlyReturns sums realized P&L by exit month, sorted by month
func MonthlyReturns(trades []*domain.Trade) []MonthlyReturn {
	byMonth := make(map[string]float64)
	for _, t := range trades {
		if t.ExitTime == nil {
			continue
		}
		byMonth[t.ExitTime.UTC().Format("2006-01")] += t.PnL
	}

	returns := make([]MonthlyReturn, 0, len(byMonth))
	for month, profit := range byMonth {
		date, _ := time.Parse("2006-01", month)
		returns = append(returns, MonthlyReturn{
			Month:  date,
			Return: profit,
		})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}

func countWins(trades []*domain.Trade) int {
	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return wins
}

// winRate is the percentage of trades with positive P&L, 0 for no trades.
func winRate(trades []*domain.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	return float64(countWins(trades)) / float64(len(trades)) * 100
}

// bucket returns the trade count and win rate of the trades that match.
func bucket(trades []*domain.Trade, match func(*domain.Trade) bool) (int, float64) {
	var selected []*domain.Trade
	for _, t := range trades {
		if match(t) {
			selected = append(selected, t)
		}
	}
	return len(selected), winRate(selected)
}

// maxDrawdown returns the deepest fractional decline and the peak at the end of the scan.
func maxDrawdown(points []domain.EquityPoint, initial float64) (float64, float64) {
	if len(points) == 0 {
		return 0, 0
	}
	peak := initial
	maxDD := 0.0
	for _, p := range points {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Value) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD, peak
}

// sharpe annualizes the mean over population deviation of period-over-period returns.
// sharpe annualizes daily returns. The closing sample of a run shares a UTC day
// with that day's opening sample and is left out, so every return spans a day.
func sharpe(points []domain.EquityPoint) float64 {
	if n := len(points); n >= 2 && sameUTCDay(points[n-2].Time, points[n-1].Time) {
		points = points[:n-1]
	}
	if len(points) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Value
		if prev == 0 {
			continue
		}
		returns = append(returns, (points[i].Value-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}

	m := mean(returns)
	variance := 0.0
	for _, r := range returns {
		variance += (r - m) * (r - m)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return m / std * math.Sqrt(365)
}

func sameUTCDay(a, b time.Time) bool {
	return a.UTC().Truncate(24 * time.Hour).Equal(b.UTC().Truncate(24 * time.Hour))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

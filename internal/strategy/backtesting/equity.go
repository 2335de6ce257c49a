package backtesting

import (
	"sort"
	"time"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

// DailyEquity samples total portfolio value at the first simulated bar of each
// UTC day and at the last simulated bar. A sample at time T counts realized P&L
// of trades closed by T plus unrealized P&L of trades open at T, marked at the
// symbol's latest valid close not after T.
func DailyEquity(run *domain.Run, data map[string][]*domain.Kline, warmupBars int) []domain.EquityPoint {
	times := sampleTimes(run, data, warmupBars)
	if len(times) == 0 {
		return nil
	}

	trades := make([]*domain.Trade, 0, len(run.Closed)+len(run.Open))
	trades = append(trades, run.Closed...)
	for _, symbol := range run.OpenSymbols() {
		trades = append(trades, run.Open[symbol])
	}

	points := make([]domain.EquityPoint, 0, len(times))
	for _, at := range times {
		value := run.Params.InitialCapital
		for _, t := range trades {
			if t.EntryTime.After(at) {
				continue
			}
			if t.ExitTime != nil && !t.ExitTime.After(at) {
				value += t.PnL
				continue
			}
			if price, ok := closeAt(data[t.Symbol], at); ok {
				value += t.ReturnAt(price) * t.PositionSize
			}
		}
		points = append(points, domain.EquityPoint{Time: at, Value: value})
	}
	return points
}

func sampleTimes(run *domain.Run, data map[string][]*domain.Kline, warmupBars int) []time.Time {
	skipped := make(map[string]bool, len(run.Skipped))
	for _, s := range run.Skipped {
		skipped[s.Symbol] = true
	}

	firstOfDay := make(map[time.Time]time.Time)
	var last time.Time
	for _, symbol := range uniqueSorted(run.Params.Symbols) {
		bars := data[symbol]
		if skipped[symbol] || len(bars) <= warmupBars {
			continue
		}
		for _, bar := range bars[warmupBars:] {
			at := bar.OpenTime.UTC()
			if !run.Params.Start.IsZero() && at.Before(run.Params.Start) {
				continue
			}
			if !run.Params.End.IsZero() && at.After(run.Params.End) {
				continue
			}
			day := at.Truncate(24 * time.Hour)
			if first, ok := firstOfDay[day]; !ok || at.Before(first) {
				firstOfDay[day] = at
			}
			if at.After(last) {
				last = at
			}
		}
	}

	times := make([]time.Time, 0, len(firstOfDay)+1)
	for _, at := range firstOfDay {
		times = append(times, at)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	if n := len(times); n > 0 && times[n-1].Before(last) {
		times = append(times, last)
	}
	return times
}

// closeAt returns the close of the latest valid bar opened at or before at.
// Bars that fail validation are never used as marks.
func closeAt(bars []*domain.Kline, at time.Time) (float64, bool) {
	idx := sort.Search(len(bars), func(i int) bool { return bars[i].OpenTime.After(at) })
	for i := idx - 1; i >= 0; i-- {
		if bars[i].Validate() == nil {
			return bars[i].Close, true
		}
	}
	return 0, false
}

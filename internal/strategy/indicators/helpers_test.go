package indicators

import (
	"time"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// makeKlines builds hourly bars around the given closes with a symmetric range.
func makeKlines(closes []float64, spread, volume float64) []*domain.Kline {
	klines := make([]*domain.Kline, len(closes))
	for i, c := range closes {
		open := testStart.Add(time.Duration(i) * time.Hour)
		klines[i] = &domain.Kline{
			OpenTime:  open,
			CloseTime: open.Add(time.Hour - time.Millisecond),
			Symbol:    "BTCUSDT",
			Interval:  "1h",
			Open:      c,
			High:      c + spread,
			Low:       c - spread,
			Close:     c,
			Volume:    volume,
		}
	}
	return klines
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

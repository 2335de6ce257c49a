package indicators

import (
	"fmt"
	"math"
	"sort"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

const (
	maxProfileBins   = 50
	profileTopLevels = 5
	defaultLookback  = 100
)

// VolumeProfileConfig holds configuration for the volume-by-price histogram.
type VolumeProfileConfig struct {
	Lookback int
}

// VolumeProfile distributes traded volume over an evenly spaced price grid.
type VolumeProfile struct {
	config VolumeProfileConfig
}

// NewVolumeProfile creates a new volume profile calculator
func NewVolumeProfile(config VolumeProfileConfig) *VolumeProfile {
	if config.Lookback <= 0 {
		config.Lookback = defaultLookback
	}
	return &VolumeProfile{config: config}
}

// Name returns the name of the indicator
func (v *VolumeProfile) Name() string {
	return "VPVR"
}

// Compute builds the profile over the last Lookback klines. The lookback is
// clamped to the available history. An empty series degrades to the current
// price as point of control.
func (v *VolumeProfile) Compute(klines []*domain.Kline, currentPrice float64) (domain.VolumeProfile, error) {
	fallback := domain.VolumeProfile{POC: currentPrice}
	if len(klines) == 0 {
		return fallback, nil
	}

	lookback := min(v.config.Lookback, len(klines))
	recent := klines[len(klines)-lookback:]

	// Edges follow an inclusive linear grid, so edges-1 buckets
	edges := min(maxProfileBins, lookback/2)
	if edges < 2 {
		return fallback, fmt.Errorf("not enough data (%d) to build a volume profile", len(recent))
	}
	buckets := edges - 1

	priceMin, priceMax := math.Inf(1), math.Inf(-1)
	for _, k := range recent {
		priceMin = math.Min(priceMin, k.Low)
		priceMax = math.Max(priceMax, k.High)
	}
	width := (priceMax - priceMin) / float64(edges-1)

	volumes := make([]float64, buckets)
	for _, k := range recent {
		idx := 0
		if width > 0 {
			idx = int(math.Floor((k.TypicalPrice() - priceMin) / width))
		}
		idx = max(0, min(idx, buckets-1))
		volumes[idx] += k.Volume
	}

	order := make([]int, buckets)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return volumes[order[a]] > volumes[order[b]]
	})

	center := func(i int) float64 {
		return priceMin + (float64(i)+0.5)*width
	}

	poc := center(order[0])
	if poc <= 0 || math.IsNaN(poc) || math.IsInf(poc, 0) {
		return fallback, fmt.Errorf("volume profile point of control %f is not usable", poc)
	}

	levels := make([]domain.VolumeLevel, 0, profileTopLevels)
	for i := 0; i < min(profileTopLevels, buckets); i++ {
		levels = append(levels, domain.VolumeLevel{
			Price:  center(order[i]),
			Volume: volumes[order[i]],
			IsPOC:  i == 0,
		})
	}

	return domain.VolumeProfile{
		POC:            poc,
		POCDistancePct: (currentPrice - poc) / poc * 100,
		Levels:         levels,
	}, nil
}

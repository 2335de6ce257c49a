// Package signal turns indicator snapshots into discrete trade decisions.
package signal

import (
	"context"
	"fmt"
	"math"

	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
	"github.com/juanluis911/TradingLatino/internal/risk"
)

// Config holds the decision thresholds of the generator.
type Config struct {
	// BiasEpsilon is the relative EMA separation needed for a directional bias.
	BiasEpsilon float64 `mapstructure:"bias_epsilon" validate:"gte=0,lt=0.1"`
	// EMATolerance lets price sit slightly on the wrong side of the fast EMA.
	EMATolerance      float64 `mapstructure:"ema_tolerance" validate:"gte=0,lt=0.1"`
	MomentumThreshold float64 `mapstructure:"momentum_threshold" validate:"gte=0"`
	// RequireStrengthening demands a rising ADX on top of the trend threshold.
	RequireStrengthening bool `mapstructure:"require_strengthening"`
	MinBars              int  `mapstructure:"min_bars" validate:"gte=1"`
}

// DefaultConfig returns ε 0.001, 0.2% EMA tolerance and 0.5 momentum threshold.
func DefaultConfig() Config {
	return Config{
		BiasEpsilon:       0.001,
		EMATolerance:      0.002,
		MomentumThreshold: 0.5,
		MinBars:           29,
	}
}

const (
	waitStrength   = 25
	minStrength    = 5
	maxStrength    = 95
	pocConfluence  = 3.0
	immediateAbove = 70
)

// Generator implements ports.SignalGenerator.
type Generator struct {
	config Config
	engine ports.IndicatorEngine
	risk   *risk.RiskManager
	logger ports.Logger
}

// NewGenerator creates a generator over the given indicator engine and risk manager.
func NewGenerator(config Config, engine ports.IndicatorEngine, riskManager *risk.RiskManager, logger ports.Logger) (*Generator, error) {
	if engine == nil {
		return nil, fmt.Errorf("indicator engine is required for signal generator")
	}
	if riskManager == nil {
		return nil, fmt.Errorf("risk manager is required for signal generator")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for signal generator")
	}
	if config.MinBars <= 0 {
		config.MinBars = DefaultConfig().MinBars
	}
	if config.BiasEpsilon < 0 || config.EMATolerance < 0 || config.MomentumThreshold < 0 {
		return nil, fmt.Errorf("signal thresholds must not be negative")
	}
	return &Generator{config: config, engine: engine, risk: riskManager, logger: logger}, nil
}

// Generate evaluates the primary timeframe at currentPrice, using the secondary
// timeframe only as confirmation. Short or missing input yields an empty signal.
func (g *Generator) Generate(ctx context.Context, primary, secondary []*domain.Kline, currentPrice float64) domain.Signal {
	if len(primary) < g.config.MinBars {
		return domain.EmptySignal()
	}
	if currentPrice <= 0 || math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		return domain.EmptySignal()
	}

	snap, errs := g.engine.Snapshot(ctx, primary, currentPrice)
	for _, err := range errs {
		g.logger.Warn(ctx, "Indicator fell back to neutral value", map[string]interface{}{
			"symbol": primary[len(primary)-1].Symbol,
			"error":  err.Error(),
		})
	}

	bias := g.bias(snap)
	trending := snap.ADX.Trending
	if g.config.RequireStrengthening {
		trending = trending && snap.ADX.Strengthening
	}

	action := g.action(snap, bias, trending, secondary, primary)
	strength := g.strength(action, snap)
	confluence := g.confluence(snap, bias, trending)

	sig := domain.Signal{
		Action:      action,
		Strength:    strength,
		Bias:        bias,
		Confluence:  confluence,
		Confidence:  confidence(confluence, strength),
		EntryTiming: domain.EntryOnConfirmation,
		Snapshot:    snap,
	}
	if strength > immediateAbove {
		sig.EntryTiming = domain.EntryImmediate
	}

	if action.IsTradeable() {
		levels, err := g.risk.Levels(action, currentPrice, snap.EMAFast, strength)
		if err != nil {
			g.logger.Warn(ctx, "Could not compute trading levels", map[string]interface{}{
				"action": string(action),
				"price":  currentPrice,
				"error":  err.Error(),
			})
			return domain.EmptySignal()
		}
		sig.Levels = levels
	}
	return sig
}

func (g *Generator) bias(snap domain.IndicatorSnapshot) domain.Bias {
	switch {
	case snap.EMAFast > snap.EMASlow*(1+g.config.BiasEpsilon):
		return domain.BiasBullish
	case snap.EMAFast < snap.EMASlow*(1-g.config.BiasEpsilon):
		return domain.BiasBearish
	default:
		return domain.BiasNeutral
	}
}

func (g *Generator) action(snap domain.IndicatorSnapshot, bias domain.Bias, trending bool, secondary, primary []*domain.Kline) domain.Action {
	momentum := snap.Squeeze.Momentum
	price := snap.Price

	switch {
	case snap.Squeeze.Compressed:
		return domain.ActionWaitCompressed
	case bias == domain.BiasBullish && trending && momentum > 0 && price > snap.EMAFast*(1-g.config.EMATolerance):
		return domain.ActionLong
	case bias == domain.BiasBearish && trending && momentum < 0 && price < snap.EMAFast*(1+g.config.EMATolerance):
		return domain.ActionShort
	case bias == domain.BiasNeutral || !g.confirms(bias, secondary, primary):
		return domain.ActionWait
	default:
		return domain.ActionNoSignal
	}
}

// confirms reports whether the secondary timeframe closes on the bias side of its
// own fast EMA. The primary series stands in when no secondary is given.
func (g *Generator) confirms(bias domain.Bias, secondary, primary []*domain.Kline) bool {
	if len(secondary) == 0 {
		secondary = primary
	}
	last := secondary[len(secondary)-1].Close
	ema := g.engine.FastEMA(secondary)
	if bias == domain.BiasBullish {
		return last > ema
	}
	return last < ema
}

func (g *Generator) strength(action domain.Action, snap domain.IndicatorSnapshot) int {
	switch action {
	case domain.ActionWait, domain.ActionWaitCompressed:
		return waitStrength
	case domain.ActionNoSignal:
		return 0
	}

	score := 0
	switch snap.ADX.Class {
	case domain.TrendVeryStrong:
		score += 40
	case domain.TrendStrong:
		score += 30
	case domain.TrendModerate:
		score += 20
	}

	score += int(math.Min(30, math.Abs(snap.Squeeze.Momentum)*10))

	if snap.EMAFast > 0 {
		dist := math.Abs(snap.Price-snap.EMAFast) / snap.EMAFast * 100
		switch {
		case dist < 0.5:
			score += 20
		case dist < 1:
			score += 15
		case dist < 2:
			score += 10
		}
	}

	pocDist := math.Abs(snap.VolumeProfile.POCDistancePct)
	switch {
	case pocDist < 2:
		score += 10
	case pocDist < 5:
		score += 5
	}

	return max(minStrength, min(maxStrength, score))
}

func (g *Generator) confluence(snap domain.IndicatorSnapshot, bias domain.Bias, trending bool) int {
	count := 0
	if bias != domain.BiasNeutral {
		count++
	}
	if trending {
		count++
	}
	if math.Abs(snap.Squeeze.Momentum) > g.config.MomentumThreshold {
		count++
	}
	if math.Abs(snap.VolumeProfile.POCDistancePct) < pocConfluence {
		count++
	}
	return count
}

func confidence(confluence, strength int) domain.Confidence {
	switch {
	case confluence >= 3 && strength >= 70:
		return domain.ConfidenceHigh
	case confluence >= 2 && strength >= 50:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/juanluis911/TradingLatino/internal/ports"
	"github.com/juanluis911/TradingLatino/internal/risk"
	"github.com/juanluis911/TradingLatino/internal/strategy/backtesting"
	"github.com/juanluis911/TradingLatino/internal/strategy/indicators"
	"github.com/juanluis911/TradingLatino/internal/strategy/signal"
)

const dateLayout = "2006-01-02"

// Config holds all application configuration.
type Config struct {
	Backtest   Backtest                    `mapstructure:"backtest"`
	Indicators indicators.EngineConfig     `mapstructure:"indicators"`
	Signal     signal.Config               `mapstructure:"signal"`
	Risk       risk.RiskConfig             `mapstructure:"risk"`
	Simulator  backtesting.SimulatorConfig `mapstructure:"simulator"`
	Binance    Binance                     `mapstructure:"binance"`
	Export     Export                      `mapstructure:"export"`
	Database   Database                    `mapstructure:"database"`
	Logger     Logger                      `mapstructure:"logger"`
}

// Backtest selects what is simulated and over which period.
type Backtest struct {
	Symbols        []string `mapstructure:"symbols" validate:"required,min=1,dive,required"`
	Interval       string   `mapstructure:"interval" validate:"required"`
	InitialCapital float64  `mapstructure:"initial_capital" validate:"gt=0"`
	// StartDate and EndDate are YYYY-MM-DD; when empty the run covers the last LookbackDays.
	StartDate    string `mapstructure:"start_date"`
	EndDate      string `mapstructure:"end_date"`
	LookbackDays int    `mapstructure:"lookback_days" validate:"gte=1"`
	// BufferDays of history before StartDate are fetched for indicator warm-up.
	BufferDays int `mapstructure:"buffer_days" validate:"gte=0"`
	// MaxBars caps the history requested per symbol.
	MaxBars    int    `mapstructure:"max_bars" validate:"gte=1"`
	DataSource string `mapstructure:"data_source" validate:"oneof=binance csv"`
	CSVDir     string `mapstructure:"csv_dir"`

	Start time.Time `mapstructure:"-"`
	End   time.Time `mapstructure:"-"`
}

// Binance holds the exchange connection settings. Keys are optional since
// market data endpoints are public.
type Binance struct {
	APIKey         string        `mapstructure:"api_key"`
	SecretKey      string        `mapstructure:"secret_key"`
	UseTestnet     bool          `mapstructure:"testnet"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gt=0"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst" validate:"gte=1"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
	MaxBarsPerCall int           `mapstructure:"max_bars_per_call" validate:"gte=1,lte=1500"`
}

// Export controls where results are written.
type Export struct {
	Dir       string `mapstructure:"dir" validate:"required"`
	WriteYAML bool   `mapstructure:"write_yaml"`
}

// Database configures the optional result store. An empty path disables it.
type Database struct {
	Path string `mapstructure:"path"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// LoadConfig reads config.yml from path when present, then applies
// environment overrides (backtest.initial_capital -> BACKTEST_INITIAL_CAPITAL).
func LoadConfig(path string) (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config: %w", ports.ErrConfigurationError, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %w", ports.ErrConfigurationError, err)
	}

	if err := cfg.validate(time.Now().UTC()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backtest.symbols", []string{"BTCUSDT", "ETHUSDT"})
	v.SetDefault("backtest.interval", "4h")
	v.SetDefault("backtest.initial_capital", 10000.0)
	v.SetDefault("backtest.start_date", "")
	v.SetDefault("backtest.end_date", "")
	v.SetDefault("backtest.lookback_days", 30)
	v.SetDefault("backtest.buffer_days", 100)
	v.SetDefault("backtest.max_bars", 5000)
	v.SetDefault("backtest.data_source", "binance")
	v.SetDefault("backtest.csv_dir", "./data/klines")

	ind := indicators.DefaultEngineConfig()
	v.SetDefault("indicators.fast_ema_period", ind.FastEMAPeriod)
	v.SetDefault("indicators.slow_ema_period", ind.SlowEMAPeriod)
	v.SetDefault("indicators.adx_period", ind.ADXPeriod)
	v.SetDefault("indicators.adx_zero_point", ind.ADXZeroPoint)
	v.SetDefault("indicators.adx_trend_threshold", ind.ADXTrendThreshold)
	v.SetDefault("indicators.adx_slope_threshold", ind.ADXSlopeThreshold)
	v.SetDefault("indicators.squeeze_bb_period", ind.SqueezeBBPeriod)
	v.SetDefault("indicators.squeeze_kc_period", ind.SqueezeKCPeriod)
	v.SetDefault("indicators.squeeze_kc_mult", ind.SqueezeKCMult)
	v.SetDefault("indicators.volume_lookback", ind.VolumeLookback)
	v.SetDefault("indicators.rsi_period", ind.RSIPeriod)
	v.SetDefault("indicators.atr_period", ind.ATRPeriod)

	sig := signal.DefaultConfig()
	v.SetDefault("signal.bias_epsilon", sig.BiasEpsilon)
	v.SetDefault("signal.ema_tolerance", sig.EMATolerance)
	v.SetDefault("signal.momentum_threshold", sig.MomentumThreshold)
	v.SetDefault("signal.require_strengthening", sig.RequireStrengthening)
	v.SetDefault("signal.min_bars", sig.MinBars)

	rc := risk.DefaultRiskConfig()
	v.SetDefault("risk.entry_offset_pct", rc.EntryOffsetPct)
	v.SetDefault("risk.target_1_pct", rc.Target1Pct)
	v.SetDefault("risk.target_2_pct", rc.Target2Pct)
	v.SetDefault("risk.stop_loss_pct", rc.StopLossPct)
	v.SetDefault("risk.ema_stop_buffer_pct", rc.EMAStopBufferPct)
	v.SetDefault("risk.invalidation_pct", rc.InvalidationPct)
	v.SetDefault("risk.max_leverage", rc.MaxLeverage)
	v.SetDefault("risk.tier_capital_fraction", rc.TierCapitalFraction)

	sim := backtesting.DefaultSimulatorConfig()
	v.SetDefault("simulator.warmup_bars", sim.WarmupBars)
	v.SetDefault("simulator.min_strength", sim.MinStrength)
	v.SetDefault("simulator.invalidation_long_factor", sim.InvalidationLongFactor)
	v.SetDefault("simulator.invalidation_short_factor", sim.InvalidationShortFactor)
	v.SetDefault("simulator.max_holding", sim.MaxHolding)
	v.SetDefault("simulator.allow_same_bar_reentry", sim.AllowSameBarReentry)

	v.SetDefault("binance.api_key", "")
	v.SetDefault("binance.secret_key", "")
	v.SetDefault("binance.testnet", false)
	v.SetDefault("binance.rate_limit", 10)      // requests per second
	v.SetDefault("binance.rate_limit_burst", 5) // burst size
	v.SetDefault("binance.max_retries", 3)
	v.SetDefault("binance.retry_delay", time.Second)
	v.SetDefault("binance.max_bars_per_call", 1000)

	v.SetDefault("export.dir", "./results")
	v.SetDefault("export.write_yaml", true)
	v.SetDefault("database.path", "")

	v.SetDefault("logger.level", "INFO")
	v.SetDefault("logger.format", "console")
}

// validate checks field constraints and resolves the backtest period relative to now.
func (c *Config) validate(now time.Time) error {
	var errs []string // Collect validation errors

	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	c.Backtest.End = now.Truncate(24 * time.Hour)
	if c.Backtest.EndDate != "" {
		end, err := time.Parse(dateLayout, c.Backtest.EndDate)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid BACKTEST_END_DATE %q: expected YYYY-MM-DD", c.Backtest.EndDate))
		}
		c.Backtest.End = end
	}
	c.Backtest.Start = c.Backtest.End.AddDate(0, 0, -c.Backtest.LookbackDays)
	if c.Backtest.StartDate != "" {
		start, err := time.Parse(dateLayout, c.Backtest.StartDate)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid BACKTEST_START_DATE %q: expected YYYY-MM-DD", c.Backtest.StartDate))
		}
		c.Backtest.Start = start
	}
	if !c.Backtest.End.After(c.Backtest.Start) {
		errs = append(errs, "BACKTEST_END_DATE must be after BACKTEST_START_DATE")
	}

	if c.Backtest.DataSource == "csv" && c.Backtest.CSVDir == "" {
		errs = append(errs, "BACKTEST_CSV_DIR must be set when BACKTEST_DATA_SOURCE is csv")
	}
	if c.Simulator.WarmupBars < c.Signal.MinBars {
		errs = append(errs, "SIMULATOR_WARMUP_BARS must not be below SIGNAL_MIN_BARS")
	}
	for i, s := range c.Backtest.Symbols {
		c.Backtest.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	// Combine validation errors
	if len(errs) > 0 {
		return fmt.Errorf("%w: configuration validation failed: %s", ports.ErrConfigurationError, strings.Join(errs, "; "))
	}
	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/juanluis911/TradingLatino/internal/adapters/export"
	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
	"github.com/juanluis911/TradingLatino/internal/strategy/analytics"
)

// Runner simulates a run over pre-fetched bars. *backtesting.Simulator implements it.
type Runner interface {
	Run(ctx context.Context, params domain.RunParams, data map[string][]*domain.Kline) (*domain.Run, error)
}

// ServiceConfig holds the settings the service needs beyond its collaborators.
type ServiceConfig struct {
	// BufferDays of history before the start date are fetched for warm-up.
	BufferDays int
	// MaxBars caps the bars requested per symbol.
	MaxBars   int
	ExportDir string // Empty disables the JSON export
	WriteYAML bool
}

// Request describes one backtest.
type Request struct {
	Symbols        []string
	Interval       string
	Start          time.Time
	End            time.Time
	InitialCapital float64
}

// Report is the outcome of a backtest run.
type Report struct {
	Run        *domain.Run
	Summary    *domain.Summary
	ExportPath string
}

// BacktestService orchestrates a backtest: fetch history, simulate,
// summarize and persist.
type BacktestService struct {
	cfg      ServiceConfig
	logger   ports.Logger
	supplier ports.HistoricalDataSupplier
	runner   Runner
	repo     ports.ResultRepository
}

// NewBacktestService creates a new application service instance. repo may be nil.
func NewBacktestService(
	cfg ServiceConfig,
	logger ports.Logger,
	supplier ports.HistoricalDataSupplier,
	runner Runner,
	repo ports.ResultRepository,
) (*BacktestService, error) {

	// Validate dependencies
	if logger == nil || supplier == nil || runner == nil {
		return nil, fmt.Errorf("missing required dependencies for BacktestService")
	}
	if cfg.MaxBars <= 0 {
		return nil, fmt.Errorf("configuration MaxBars must be positive")
	}
	if cfg.BufferDays < 0 {
		return nil, fmt.Errorf("configuration BufferDays cannot be negative")
	}

	return &BacktestService{
		cfg:      cfg,
		logger:   logger,
		supplier: supplier,
		runner:   runner,
		repo:     repo,
	}, nil
}

// Run executes the backtest described by req. When the simulation stops early
// the partial report is returned together with the error.
func (s *BacktestService) Run(ctx context.Context, req Request) (*Report, error) {
	params, data, fetchErrs, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	run, runErr := s.runner.Run(ctx, params, data)
	if run == nil {
		return nil, runErr
	}
	for i, skipped := range run.Skipped {
		if fetchErr, ok := fetchErrs[skipped.Symbol]; ok {
			run.Skipped[i].Reason = fetchErr.Error()
		}
	}

	report := &Report{Run: run, Summary: analytics.Summarize(run)}
	if runErr != nil {
		s.logger.Error(ctx, runErr, "Backtest stopped early", map[string]interface{}{"run_id": run.ID})
		return report, runErr
	}

	if err := s.persist(ctx, report); err != nil {
		return report, err
	}
	return report, nil
}

// LoadHistory validates req and fetches the bars every symbol of it needs,
// including the indicator warm-up buffer. Symbols whose fetch failed are
// absent or empty in the returned map.
func (s *BacktestService) LoadHistory(ctx context.Context, req Request) (domain.RunParams, map[string][]*domain.Kline, error) {
	params, data, _, err := s.load(ctx, req)
	return params, data, err
}

func (s *BacktestService) load(ctx context.Context, req Request) (domain.RunParams, map[string][]*domain.Kline, map[string]error, error) {
	params := domain.RunParams{
		Start:          req.Start.UTC(),
		End:            req.End.UTC(),
		Interval:       req.Interval,
		InitialCapital: req.InitialCapital,
		Symbols:        req.Symbols,
	}
	if err := params.Validate(); err != nil {
		return params, nil, nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}

	limit, err := BarLimit(req.Interval, req.Start, req.End, s.cfg.BufferDays, s.cfg.MaxBars)
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}

	data, fetchErrs := s.fetch(ctx, req.Symbols, req.Interval, limit)
	if err := ctx.Err(); err != nil {
		return params, nil, nil, fmt.Errorf("%w: %w", ports.ErrContextCanceled, err)
	}
	return params, data, fetchErrs, nil
}

// fetch loads history for every symbol. A failed or empty fetch leaves the
// symbol without bars so the simulator skips it.
func (s *BacktestService) fetch(ctx context.Context, symbols []string, interval string, limit int) (map[string][]*domain.Kline, map[string]error) {
	data := make(map[string][]*domain.Kline, len(symbols))
	fetchErrs := make(map[string]error)

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		bars, err := s.supplier.GetBars(ctx, symbol, interval, limit)
		if err != nil {
			fetchErrs[symbol] = fmt.Errorf("%w: fetch failed: %w", ports.ErrDataInsufficient, err)
			s.logger.Warn(ctx, "Failed to fetch historical data", map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			})
			continue
		}
		if len(bars) > limit {
			bars = bars[len(bars)-limit:]
		}
		if len(bars) == 0 {
			fetchErrs[symbol] = fmt.Errorf("%w: no bars returned", ports.ErrDataInsufficient)
		}
		data[symbol] = sortedBars(bars)
		s.logger.Debug(ctx, "Fetched historical data", map[string]interface{}{
			"symbol": symbol,
			"bars":   len(bars),
			"limit":  limit,
		})
	}
	return data, fetchErrs
}

// persist exports and stores a completed run. The result store is optional
// and its failures do not invalidate the export.
func (s *BacktestService) persist(ctx context.Context, report *Report) error {
	if s.cfg.ExportDir != "" {
		name := fmt.Sprintf("backtest_%s_%s", time.Now().UTC().Format("20060102_150405"), shortID(report.Run.ID))
		path := filepath.Join(s.cfg.ExportDir, name+".json")
		if err := export.Save(path, export.NewDocument(report.Summary, report.Run.Closed)); err != nil {
			s.logger.Error(ctx, err, "Failed to export backtest results", map[string]interface{}{"path": path})
			return err
		}
		report.ExportPath = path

		if s.cfg.WriteYAML {
			yamlPath := filepath.Join(s.cfg.ExportDir, name+"_summary.yml")
			if err := export.SaveSummaryYAML(yamlPath, report.Summary); err != nil {
				s.logger.Error(ctx, err, "Failed to export summary", map[string]interface{}{"path": yamlPath})
				return err
			}
		}
		s.logger.Info(ctx, "Backtest results exported", map[string]interface{}{"path": path})
	}

	if s.repo != nil {
		if err := s.repo.SaveRun(ctx, report.Run.ID, report.Summary, report.Run.Closed); err != nil {
			s.logger.Error(ctx, err, "Failed to store backtest run", map[string]interface{}{"run_id": report.Run.ID})
		}
	}
	return nil
}

// BarLimit is the number of bars that covers [start, end] plus bufferDays of
// warm-up at the given interval, capped at maxBars.
func BarLimit(interval string, start, end time.Time, bufferDays, maxBars int) (int, error) {
	d, err := IntervalDuration(interval)
	if err != nil {
		return 0, err
	}
	if end.Before(start) {
		return 0, fmt.Errorf("end %s before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	days := int(end.Sub(start).Hours()/24) + bufferDays
	perDay := float64(24*time.Hour) / float64(d)
	limit := int(math.Ceil(perDay * float64(days)))
	return max(1, min(limit, maxBars)), nil
}

// IntervalDuration parses exchange interval notation such as 15m, 4h, 1d or 1w.
func IntervalDuration(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	unit := interval[len(interval)-1:]
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}

	switch strings.ToLower(unit) {
	case "m":
		if unit == "M" {
			return time.Duration(n) * 30 * 24 * time.Hour, nil
		}
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "w":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, errors.New("unsupported interval unit in " + interval)
	}
}

func sortedBars(bars []*domain.Kline) []*domain.Kline {
	if sort.SliceIsSorted(bars, func(i, j int) bool { return bars[i].OpenTime.Before(bars[j].OpenTime) }) {
		return bars
	}
	out := make([]*domain.Kline, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"

	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	// Largest page the klines endpoint serves
	maxKlinesPerCall = 1500
)

// Client implements ports.HistoricalDataSupplier using the go-binance futures REST API.
// Every request waits on a client-side rate limiter; rate-limit and connection
// failures are retried with exponential backoff.
type Client struct {
	futuresClient  *futures.Client
	logger         ports.Logger
	limiter        *rate.Limiter
	maxRetries     int
	retryDelay     time.Duration
	maxBarsPerCall int
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	// BaseURL overrides the production/testnet endpoint when set.
	BaseURL        string
	Logger         ports.Logger
	RateLimit      float64       // Requests per second
	RateLimitBurst int           // Burst size
	MaxRetries     int           // Retries after the first attempt
	RetryDelay     time.Duration // First backoff delay (e.g., 1 * time.Second)
	MaxBarsPerCall int
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Debug(context.Background(), "APIKey or SecretKey is empty. Client will only use public market data endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = cfg.BaseURL
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{"baseURL": client.BaseURL})

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxBarsPerCall <= 0 || cfg.MaxBarsPerCall > maxKlinesPerCall {
		cfg.MaxBarsPerCall = maxKlinesPerCall
	}

	return &Client{
		futuresClient:  client,
		logger:         cfg.Logger,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
		maxBarsPerCall: cfg.MaxBarsPerCall,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		// Map specific Binance error codes to custom errors
		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1001, -1006, -1007: // Disconnected, unexpected response, timeout waiting for backend
			mappedErr = ports.ErrExchangeUnavailable
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015: // Signature or API-key problems
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1120, -1121, -1125, -1127, -1128, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		default:
			// General classification for unmapped API errors
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "EOF") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		// Default for other errors (e.g., parsing errors within the adapter)
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

func retryable(err error) bool {
	return errors.Is(err, ports.ErrRateLimited) ||
		errors.Is(err, ports.ErrConnectionFailed) ||
		errors.Is(err, ports.ErrExchangeUnavailable)
}

// call runs fn behind the rate limiter, retrying transient failures.
// fn must return errors already translated by handleError.
func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	b := &backoff.Backoff{
		Min:    c.retryDelay,
		Max:    30 * c.retryDelay,
		Factor: 2,
		Jitter: true,
	}

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s rate limiter wait: %w: %w", op, ports.ErrContextCanceled, err)
		}
		err := fn()
		if err == nil || !retryable(err) || int(b.Attempt()) >= c.maxRetries {
			return err
		}

		delay := b.Duration()
		c.logger.Warn(ctx, "Retrying Binance request", map[string]interface{}{
			"operation": op,
			"attempt":   int(b.Attempt()),
			"delay":     delay.String(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s operation canceled: %w: %w", op, ports.ErrContextCanceled, ctx.Err())
		case <-time.After(delay):
		}
	}
}

// GetCurrentPrice retrieves the last traded price for a given symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetCurrentPrice"
	var stats []*futures.PriceChangeStats
	err := c.call(ctx, op, func() error {
		var err error
		stats, err = c.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		return c.handleError(ctx, err, op)
	})
	if err != nil {
		return 0, err
	}
	if len(stats) == 0 {
		err := fmt.Errorf("%w: no price data returned for symbol %s", ports.ErrNotFound, symbol)
		c.logger.Warn(ctx, op+" returned no tickers", map[string]interface{}{"symbol": symbol})
		return 0, err
	}

	price, err := strconv.ParseFloat(stats[0].LastPrice, 64)
	if err != nil {
		// This is an internal parsing error, not an API error
		parseErr := fmt.Errorf("could not parse price '%s': %w", stats[0].LastPrice, err)
		return 0, c.handleError(ctx, parseErr, op)
	}
	return price, nil
}

// GetBars retrieves up to limit of the most recent klines, oldest first.
// Requests larger than one page walk backwards from the newest bar.
func (c *Client) GetBars(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	op := "GetBars"
	if limit <= 0 {
		return nil, fmt.Errorf("%s failed: %w: limit must be positive, got %d", op, ports.ErrInvalidRequest, limit)
	}

	var pages [][]*domain.Kline
	total := 0
	var endTime int64
	for total < limit {
		want := min(c.maxBarsPerCall, limit-total)
		page, err := c.fetchPage(ctx, op, symbol, interval, want, 0, endTime)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		pages = append(pages, page)
		total += len(page)
		endTime = page[0].OpenTime.UnixMilli() - 1
		if len(page) < want {
			break // No older history
		}
	}

	klines := make([]*domain.Kline, 0, total)
	for i := len(pages) - 1; i >= 0; i-- {
		klines = append(klines, pages[i]...)
	}
	c.logger.Debug(ctx, op+" completed", map[string]interface{}{
		"symbol":   symbol,
		"interval": interval,
		"count":    len(klines),
	})
	return klines, nil
}

// GetKlinesRange fetches all klines for a symbol/interval between start and end time.
func (c *Client) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	op := "GetKlinesRange"
	var allKlines []*domain.Kline
	from := start.UnixMilli()

	for {
		klines, err := c.fetchPage(ctx, op, symbol, interval, c.maxBarsPerCall, from, end.UnixMilli())
		if err != nil {
			return nil, err
		}
		if len(klines) == 0 {
			break
		}
		allKlines = append(allKlines, klines...)
		last := klines[len(klines)-1]
		from = last.CloseTime.UnixMilli() + 1
		if from > end.UnixMilli() || len(klines) < c.maxBarsPerCall {
			break
		}
	}

	return allKlines, nil
}

// fetchPage requests one page of klines; zero startTime or endTime leaves the bound open.
func (c *Client) fetchPage(ctx context.Context, op, symbol, interval string, limit int, startTime, endTime int64) ([]*domain.Kline, error) {
	var binanceKlines []*futures.Kline
	err := c.call(ctx, op, func() error {
		svc := c.futuresClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
		if startTime > 0 {
			svc = svc.StartTime(startTime)
		}
		if endTime > 0 {
			svc = svc.EndTime(endTime)
		}
		var err error
		binanceKlines, err = svc.Do(ctx)
		return c.handleError(ctx, err, op)
	})
	if err != nil {
		return nil, err
	}

	domainKlines := make([]*domain.Kline, 0, len(binanceKlines))
	for _, bk := range binanceKlines {
		dk, err := translateBinanceKline(bk, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
		}
		domainKlines = append(domainKlines, dk)
	}
	return domainKlines, nil
}

func translateBinanceKline(bk *futures.Kline, symbol, interval string) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime).UTC(),
		CloseTime: time.UnixMilli(bk.CloseTime).UTC(),
		Symbol:    symbol,   // Use passed symbol as it's not in futures.Kline
		Interval:  interval, // Use passed interval
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
	}, nil
}

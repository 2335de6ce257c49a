package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

var _ ports.ResultRepository = (*Repository)(nil)

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func closedTrade(t *testing.T, symbol string, entry time.Time, action domain.Action, exit float64, reason domain.ExitReason) *domain.Trade {
	t.Helper()
	stop, t1, t2 := 98.0, 102.0, 105.0
	if action == domain.ActionShort {
		stop, t1, t2 = 102, 98, 95
	}
	trade, err := domain.NewTrade(domain.OpenTradeParams{
		Symbol: symbol, Time: entry, Price: 100, Action: action,
		Strength: 75, Confluence: 3, PositionSize: 333.33, StopLoss: stop, Target1: t1, Target2: t2,
	})
	require.NoError(t, err)
	require.NoError(t, trade.UpdateExcursion(exit))
	require.NoError(t, trade.Close(entry.Add(6*time.Hour), exit, reason))
	return trade
}

func sampleSummary() *domain.Summary {
	return &domain.Summary{
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: 10000,
		SymbolsTested:  []string{"BTCUSDT", "ETHUSDT"},
		TotalTrades:    3,
		WinningTrades:  2,
		LosingTrades:   1,
		WinRate:        66.666667,
		FinalCapital:   10013.33,
		TotalReturn:    13.33,
		SharpeRatio:    1.25,
		ExitReasons:    map[domain.ExitReason]int{domain.ExitTarget1: 2, domain.ExitStopLoss: 1},
		MethodologyChecks: map[string]float64{
			"high_strength_win_rate": 0,
		},
	}
}

func TestRepository_SaveAndFindRun(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

	trades := []*domain.Trade{
		closedTrade(t, "BTCUSDT", base, domain.ActionLong, 102, domain.ExitTarget1),
		closedTrade(t, "ETHUSDT", base.Add(time.Hour), domain.ActionShort, 98, domain.ExitTarget1),
		closedTrade(t, "BTCUSDT", base.Add(24*time.Hour), domain.ActionLong, 98, domain.ExitStopLoss),
	}
	summary := sampleSummary()

	require.NoError(t, repo.SaveRun(ctx, "run-1", summary, trades))

	record, err := repo.FindRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "run-1", record.ID)
	assert.Equal(t, summary, record.Summary)
	require.Len(t, record.Trades, 3)
	for i, got := range record.Trades {
		want := trades[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Symbol, got.Symbol)
		assert.Equal(t, want.Action, got.Action)
		assert.True(t, want.EntryTime.Equal(got.EntryTime))
		require.NotNil(t, got.ExitTime)
		assert.True(t, want.ExitTime.Equal(*got.ExitTime))
		assert.Equal(t, *want.ExitPrice, *got.ExitPrice)
		assert.Equal(t, want.PositionSize, got.PositionSize)
		assert.Equal(t, want.PnL, got.PnL)
		assert.Equal(t, want.ExitReason, got.ExitReason)
		assert.Equal(t, want.RiskRewardAchieved, got.RiskRewardAchieved)
	}
}

func TestRepository_FindRunNotFound(t *testing.T) {
	repo := setupTestDB(t)

	record, err := repo.FindRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRepository_SaveRunErrors(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		runID   string
		summary *domain.Summary
		wantErr error
	}{
		{name: "missing id", runID: "", summary: sampleSummary(), wantErr: ports.ErrInvalidRequest},
		{name: "missing summary", runID: "run-x", summary: nil, wantErr: ports.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, repo.SaveRun(ctx, tt.runID, tt.summary, nil), tt.wantErr)
		})
	}

	require.NoError(t, repo.SaveRun(ctx, "dup", sampleSummary(), nil))
	assert.ErrorIs(t, repo.SaveRun(ctx, "dup", sampleSummary(), nil), ports.ErrQueryFailed)
}

func TestRepository_FailedSaveLeavesNothing(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

	trade := closedTrade(t, "BTCUSDT", base, domain.ActionLong, 102, domain.ExitTarget1)
	// Same trade ID twice violates the primary key after the run row is written
	err := repo.SaveRun(ctx, "run-1", sampleSummary(), []*domain.Trade{trade, trade})
	assert.ErrorIs(t, err, ports.ErrQueryFailed)

	record, err := repo.FindRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRepository_FindTradesBySymbol(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

	first := []*domain.Trade{
		closedTrade(t, "BTCUSDT", base, domain.ActionLong, 102, domain.ExitTarget1),
		closedTrade(t, "ETHUSDT", base, domain.ActionLong, 102, domain.ExitTarget1),
	}
	second := []*domain.Trade{
		closedTrade(t, "BTCUSDT", base.Add(48*time.Hour), domain.ActionShort, 102, domain.ExitStopLoss),
		closedTrade(t, "BTCUSDT", base.Add(96*time.Hour), domain.ActionLong, 105, domain.ExitTarget2),
	}
	require.NoError(t, repo.SaveRun(ctx, "run-1", sampleSummary(), first))
	require.NoError(t, repo.SaveRun(ctx, "run-2", sampleSummary(), second))

	tests := []struct {
		name    string
		symbol  string
		limit   int
		wantIDs []string
	}{
		{name: "most recent first", symbol: "BTCUSDT", limit: 10, wantIDs: []string{second[1].ID, second[0].ID, first[0].ID}},
		{name: "limited", symbol: "BTCUSDT", limit: 1, wantIDs: []string{second[1].ID}},
		{name: "other symbol", symbol: "ETHUSDT", limit: 10, wantIDs: []string{first[1].ID}},
		{name: "unknown symbol", symbol: "XRPUSDT", limit: 10, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades, err := repo.FindTradesBySymbol(ctx, tt.symbol, tt.limit)
			require.NoError(t, err)
			ids := make([]string, len(trades))
			for i, tr := range trades {
				ids[i] = tr.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestRepository_RunTotals(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

	trades := []*domain.Trade{
		closedTrade(t, "BTCUSDT", base, domain.ActionLong, 102, domain.ExitTarget1),
		closedTrade(t, "BTCUSDT", base.Add(24*time.Hour), domain.ActionLong, 98, domain.ExitStopLoss),
	}
	require.NoError(t, repo.SaveRun(ctx, "run-1", sampleSummary(), trades))

	total, count, err := repo.RunTotals(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	want := decimal.NewFromFloat(trades[0].PnL).Add(decimal.NewFromFloat(trades[1].PnL))
	assert.True(t, want.Equal(total), "total %s, want %s", total, want)
}

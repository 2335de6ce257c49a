package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
)

func sampleTrades(t *testing.T) []*domain.Trade {
	t.Helper()
	entry := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	long, err := domain.NewTrade(domain.OpenTradeParams{
		Symbol: "BTCUSDT", Time: entry, Price: 100, Action: domain.ActionLong,
		Strength: 82, Confluence: 4, PositionSize: 500, StopLoss: 98, Target1: 102, Target2: 105,
	})
	require.NoError(t, err)
	require.NoError(t, long.UpdateExcursion(104.5))
	require.NoError(t, long.Close(entry.Add(20*time.Hour), 105, domain.ExitTarget2))

	short, err := domain.NewTrade(domain.OpenTradeParams{
		Symbol: "ETHUSDT", Time: entry, Price: 50, Action: domain.ActionShort,
		Strength: 61, Confluence: 2, PositionSize: 200, StopLoss: 51, Target1: 49, Target2: 47.5,
	})
	require.NoError(t, err)
	require.NoError(t, short.Close(entry.Add(3*time.Hour), 51, domain.ExitStopLoss))

	return []*domain.Trade{long, short}
}

func sampleSummary() *domain.Summary {
	return &domain.Summary{
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		InitialCapital: 10000,
		SymbolsTested:  []string{"BTCUSDT", "ETHUSDT"},
		TotalTrades:    2,
		WinningTrades:  1,
		LosingTrades:   1,
		WinRate:        62.5,
		FinalCapital:   10021,
		TotalReturn:    21,
		TotalReturnPct: 0.21,

		HighStrengthTrades:    1,
		HighStrengthWinRate:   100,
		MediumStrengthTrades:  1,
		FourConfluenceTrades:  1,
		FourConfluenceWinRate: 100,
		TwoConfluenceTrades:   1,

		ExitReasons: map[domain.ExitReason]int{domain.ExitTarget2: 1, domain.ExitStopLoss: 1},
		MethodologyChecks: map[string]float64{
			"high_strength_win_rate": 100,
		},
		SkippedSymbols: []domain.SymbolError{{Symbol: "XRPUSDT", Reason: "insufficient data"}},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.json")
	doc := NewDocument(sampleSummary(), sampleTrades(t))

	require.NoError(t, Save(path, doc))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Methodology, loaded.Methodology)
	assert.True(t, doc.GeneratedAt.Equal(loaded.GeneratedAt))
	assert.Equal(t, doc.Results, loaded.Results)
	require.Len(t, loaded.Trades, 2)
	for i := range doc.Trades {
		assert.Equal(t, doc.Trades[i], loaded.Trades[i])
	}
}

func TestSaveUsesExportFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, Save(path, NewDocument(sampleSummary(), sampleTrades(t))))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	for _, key := range []string{
		`"results"`, `"trades"`, `"methodology": "JAIME_MERINO"`, `"generated_at"`,
		`"symbols_tested"`, `"total_return_percentage"`, `"signal_type": "LONG"`,
		`"confluence_score": 4`, `"exit_reason": "TARGET_2"`, `"entry_time": "2024-03-01T08:00:00Z"`,
	} {
		assert.Contains(t, text, key)
	}
}

func TestSaveFlattensBuckets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, Save(path, NewDocument(sampleSummary(), sampleTrades(t))))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded struct {
		Results map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	want := map[string]float64{
		"high_strength_trades":      1,
		"high_strength_win_rate":    100,
		"medium_strength_trades":    1,
		"medium_strength_win_rate":  0,
		"low_strength_trades":       0,
		"low_strength_win_rate":     0,
		"four_confluence_trades":    1,
		"four_confluence_win_rate":  100,
		"three_confluence_trades":   0,
		"three_confluence_win_rate": 0,
		"two_confluence_trades":     1,
		"two_confluence_win_rate":   0,
	}
	for key, v := range want {
		assert.Contains(t, decoded.Results, key)
		assert.Equal(t, v, decoded.Results[key], key)
	}
	for _, nested := range []string{"high_strength", "four_confluence"} {
		assert.NotContains(t, decoded.Results, nested)
	}
}

func TestNewDocumentNilTrades(t *testing.T) {
	doc := NewDocument(sampleSummary(), nil)
	assert.NotNil(t, doc.Trades)
	assert.Equal(t, time.UTC, doc.GeneratedAt.Location())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid json", content: "{not json"},
		{name: "missing results", content: `{"trades": [], "methodology": "JAIME_MERINO"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			assert.ErrorIs(t, err, ports.ErrExportFailed)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ports.ErrExportFailed)
}

func TestSaveSummaryYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yml")
	summary := sampleSummary()
	require.NoError(t, SaveSummaryYAML(path, summary))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded["total_trades"])
	assert.Equal(t, 62.5, decoded["win_rate"])
	assert.Contains(t, decoded, "philosophy_validation")
}

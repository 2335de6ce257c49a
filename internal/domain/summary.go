package domain

import "time"

// Summary holds the aggregate statistics of a completed run.
// Percentages are expressed on a 0-100 scale.
type Summary struct {
	StartDate      time.Time `json:"start_date" yaml:"start_date"`
	EndDate        time.Time `json:"end_date" yaml:"end_date"`
	InitialCapital float64   `json:"initial_capital" yaml:"initial_capital"`
	SymbolsTested  []string  `json:"symbols_tested" yaml:"symbols_tested"`

	TotalTrades   int     `json:"total_trades" yaml:"total_trades"`
	WinningTrades int     `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades  int     `json:"losing_trades" yaml:"losing_trades"`
	WinRate       float64 `json:"win_rate" yaml:"win_rate"`

	FinalCapital         float64 `json:"final_capital" yaml:"final_capital"`
	TotalReturn          float64 `json:"total_return" yaml:"total_return"`
	TotalReturnPct       float64 `json:"total_return_percentage" yaml:"total_return_percentage"`
	MaxDrawdown          float64 `json:"max_drawdown" yaml:"max_drawdown"`
	MaxDrawdownPct       float64 `json:"max_drawdown_percentage" yaml:"max_drawdown_percentage"`
	SharpeRatio          float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	CalmarRatio          float64 `json:"calmar_ratio" yaml:"calmar_ratio"`
	AvgTradeDurationHour float64 `json:"avg_trade_duration" yaml:"avg_trade_duration"`
	AvgWin               float64 `json:"avg_win" yaml:"avg_win"`
	AvgLoss              float64 `json:"avg_loss" yaml:"avg_loss"`
	BestTrade            float64 `json:"best_trade" yaml:"best_trade"`
	WorstTrade           float64 `json:"worst_trade" yaml:"worst_trade"`
	AvgRiskReward        float64 `json:"avg_risk_reward" yaml:"avg_risk_reward"`

	// strength >= 80, 60-79 and 50-59
	HighStrengthTrades    int     `json:"high_strength_trades" yaml:"high_strength_trades"`
	HighStrengthWinRate   float64 `json:"high_strength_win_rate" yaml:"high_strength_win_rate"`
	MediumStrengthTrades  int     `json:"medium_strength_trades" yaml:"medium_strength_trades"`
	MediumStrengthWinRate float64 `json:"medium_strength_win_rate" yaml:"medium_strength_win_rate"`
	LowStrengthTrades     int     `json:"low_strength_trades" yaml:"low_strength_trades"`
	LowStrengthWinRate    float64 `json:"low_strength_win_rate" yaml:"low_strength_win_rate"`

	FourConfluenceTrades   int     `json:"four_confluence_trades" yaml:"four_confluence_trades"`
	FourConfluenceWinRate  float64 `json:"four_confluence_win_rate" yaml:"four_confluence_win_rate"`
	ThreeConfluenceTrades  int     `json:"three_confluence_trades" yaml:"three_confluence_trades"`
	ThreeConfluenceWinRate float64 `json:"three_confluence_win_rate" yaml:"three_confluence_win_rate"`
	TwoConfluenceTrades    int     `json:"two_confluence_trades" yaml:"two_confluence_trades"`
	TwoConfluenceWinRate   float64 `json:"two_confluence_win_rate" yaml:"two_confluence_win_rate"`

	ExitReasons       map[ExitReason]int `json:"exit_reasons" yaml:"exit_reasons"`
	MethodologyChecks map[string]float64 `json:"philosophy_validation" yaml:"philosophy_validation"`
	SkippedSymbols    []SymbolError      `json:"skipped_symbols" yaml:"skipped_symbols"`
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"

	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
)

// Repository implements the ports.ResultRepository interface using SQLite.
// Money columns are stored as decimal text so totals aggregate without float drift.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/backtests.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("%w: failed to create data directory '%s': %w", ports.ErrDBConnection, filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		err = fmt.Errorf("%w: failed to ping database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to initialize database schema: %w", ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Debug(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		initial_capital TEXT NOT NULL,
		final_capital TEXT NOT NULL,
		total_return TEXT NOT NULL,
		total_trades INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		max_drawdown_pct REAL NOT NULL,
		sharpe_ratio REAL NOT NULL,
		summary_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS backtest_trades (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id),
		symbol TEXT NOT NULL,
		signal_type TEXT NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NULL,
		signal_strength INTEGER NOT NULL,
		confluence_score INTEGER NOT NULL,
		position_size TEXT NOT NULL,
		stop_loss REAL NOT NULL,
		target_1 REAL NOT NULL,
		target_2 REAL NOT NULL,
		exit_reason TEXT NULL,
		pnl TEXT NOT NULL,
		pnl_percentage REAL NOT NULL,
		max_drawdown REAL NOT NULL,
		max_profit REAL NOT NULL,
		duration_hours REAL NOT NULL,
		risk_reward_achieved REAL NOT NULL
	);
	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades (run_id, entry_time);
	CREATE INDEX IF NOT EXISTS idx_backtest_trades_symbol_entry_time ON backtest_trades (symbol, entry_time);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Debug(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SaveRun stores the summary and closed trades of a run in one transaction.
func (r *Repository) SaveRun(ctx context.Context, runID string, summary *domain.Summary, trades []*domain.Trade) error {
	if runID == "" || summary == nil {
		return fmt.Errorf("%w: run id and summary are required", ports.ErrInvalidRequest)
	}
	blob, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: failed to encode summary for run %s: %w", ports.ErrQueryFailed, runID, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction for run %s: %w", ports.ErrDBConnection, runID, err)
	}
	defer tx.Rollback() // No-op after commit

	const runQuery = `
	INSERT INTO runs (id, start_date, end_date, initial_capital, final_capital, total_return,
	                  total_trades, win_rate, max_drawdown_pct, sharpe_ratio, summary_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, runQuery,
		runID, summary.StartDate.UTC(), summary.EndDate.UTC(),
		decimal.NewFromFloat(summary.InitialCapital), decimal.NewFromFloat(summary.FinalCapital),
		decimal.NewFromFloat(summary.TotalReturn), summary.TotalTrades, summary.WinRate,
		summary.MaxDrawdownPct, summary.SharpeRatio, string(blob), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: failed to insert run %s: %w", ports.ErrQueryFailed, runID, err)
	}

	const tradeQuery = `
	INSERT INTO backtest_trades (id, run_id, symbol, signal_type, entry_time, exit_time, entry_price, exit_price,
	                             signal_strength, confluence_score, position_size, stop_loss, target_1, target_2,
	                             exit_reason, pnl, pnl_percentage, max_drawdown, max_profit, duration_hours,
	                             risk_reward_achieved)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, tradeQuery)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare trade insert: %w", ports.ErrQueryFailed, err)
	}
	defer stmt.Close()

	for _, t := range trades {
		var exitTime sql.NullTime
		if t.ExitTime != nil {
			exitTime = sql.NullTime{Time: t.ExitTime.UTC(), Valid: true}
		}
		var exitPrice sql.NullFloat64
		if t.ExitPrice != nil {
			exitPrice = sql.NullFloat64{Float64: *t.ExitPrice, Valid: true}
		}
		var exitReason sql.NullString
		if t.ExitReason != "" {
			exitReason = sql.NullString{String: string(t.ExitReason), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			t.ID, runID, t.Symbol, string(t.Action), t.EntryTime.UTC(), exitTime, t.EntryPrice, exitPrice,
			t.Strength, t.Confluence, decimal.NewFromFloat(t.PositionSize), t.StopLoss, t.Target1, t.Target2,
			exitReason, decimal.NewFromFloat(t.PnL), t.PnLPct, t.MaxDrawdown, t.MaxProfit, t.DurationHours,
			t.RiskRewardAchieved)
		if err != nil {
			return fmt.Errorf("%w: failed to insert trade %s for run %s: %w", ports.ErrQueryFailed, t.ID, runID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit run %s: %w", ports.ErrQueryFailed, runID, err)
	}
	r.logger.Info(ctx, "Backtest run saved", map[string]interface{}{"runID": runID, "trades": len(trades)})
	return nil
}

// FindRun loads a stored run. It returns nil, nil when the run does not exist.
func (r *Repository) FindRun(ctx context.Context, runID string) (*ports.RunRecord, error) {
	const query = `SELECT summary_json FROM runs WHERE id = ?`

	var blob string
	err := r.db.QueryRowContext(ctx, query, runID).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Run not found", map[string]interface{}{"runID": runID})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("%w: failed to query run %s: %w", ports.ErrQueryFailed, runID, err)
	}

	var summary domain.Summary
	if err := json.Unmarshal([]byte(blob), &summary); err != nil {
		return nil, fmt.Errorf("%w: failed to decode summary of run %s: %w", ports.ErrQueryFailed, runID, err)
	}

	trades, err := r.queryTrades(ctx, `WHERE run_id = ? ORDER BY entry_time ASC, symbol ASC`, runID)
	if err != nil {
		return nil, err
	}
	return &ports.RunRecord{ID: runID, Summary: &summary, Trades: trades}, nil
}

// FindTradesBySymbol retrieves the most recent trades for a symbol across runs, up to limit.
func (r *Repository) FindTradesBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	return r.queryTrades(ctx, `WHERE symbol = ? ORDER BY entry_time DESC LIMIT ?`, symbol, limit)
}

// RunTotals sums the stored P&L of a run straight from the decimal columns.
func (r *Repository) RunTotals(ctx context.Context, runID string) (decimal.Decimal, int, error) {
	const query = `SELECT pnl FROM backtest_trades WHERE run_id = ?`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("%w: failed to query pnl of run %s: %w", ports.ErrQueryFailed, runID, err)
	}
	defer rows.Close()

	total := decimal.Zero
	count := 0
	for rows.Next() {
		var pnl decimal.Decimal
		if err := rows.Scan(&pnl); err != nil {
			return decimal.Zero, 0, fmt.Errorf("%w: failed to scan pnl: %w", ports.ErrQueryFailed, err)
		}
		total = total.Add(pnl)
		count++
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, 0, fmt.Errorf("%w: error iterating pnl rows: %w", ports.ErrQueryFailed, err)
	}
	return total, count, nil
}

func (r *Repository) queryTrades(ctx context.Context, clause string, args ...interface{}) ([]*domain.Trade, error) {
	query := `
	SELECT id, symbol, signal_type, entry_time, exit_time, entry_price, exit_price, signal_strength,
	       confluence_score, position_size, stop_loss, target_1, target_2, exit_reason, pnl,
	       pnl_percentage, max_drawdown, max_profit, duration_hours, risk_reward_achieved
	FROM backtest_trades ` + clause

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query trades: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan trade: %w", ports.ErrQueryFailed, err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating trade rows: %w", ports.ErrQueryFailed, err)
	}
	return trades, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var (
		action       string
		exitTime     sql.NullTime
		exitPrice    sql.NullFloat64
		exitReason   sql.NullString
		positionSize decimal.Decimal
		pnl          decimal.Decimal
	)
	err := s.Scan(
		&t.ID, &t.Symbol, &action, &t.EntryTime, &exitTime, &t.EntryPrice, &exitPrice, &t.Strength,
		&t.Confluence, &positionSize, &t.StopLoss, &t.Target1, &t.Target2, &exitReason, &pnl,
		&t.PnLPct, &t.MaxDrawdown, &t.MaxProfit, &t.DurationHours, &t.RiskRewardAchieved)
	if err != nil {
		return nil, err
	}

	t.Action = domain.Action(action)
	t.EntryTime = t.EntryTime.UTC()
	t.PositionSize = positionSize.InexactFloat64()
	t.PnL = pnl.InexactFloat64()
	if exitTime.Valid {
		at := exitTime.Time.UTC()
		t.ExitTime = &at
	}
	if exitPrice.Valid {
		price := exitPrice.Float64
		t.ExitPrice = &price
	}
	if exitReason.Valid {
		t.ExitReason = domain.ExitReason(exitReason.String)
	}
	return t, nil
}

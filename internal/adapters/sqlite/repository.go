package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ribbonBot/internal/domain"
	"ribbonBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.PositionRepository and ports.TradeRepository interfaces using SQLite.
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
		dbPath = "./data/ribbonbot.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency between the live loop and reporting reads.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL DEFAULT NULL,
		quantity REAL NOT NULL,
		quality_score REAL NOT NULL DEFAULT 0,
		peak_favorable_pct REAL NOT NULL DEFAULT 0,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		status TEXT NOT NULL,
		exit_reason TEXT DEFAULT NULL,
		pnl REAL DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS trade_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id INTEGER NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		quantity REAL NOT NULL,
		quality_score REAL NOT NULL DEFAULT 0,
		pnl REAL NOT NULL,
		pnl_pct REAL NOT NULL,
		peak_favorable_pct REAL NOT NULL DEFAULT 0,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NOT NULL,
		exit_reason TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_positions_symbol_status ON positions (symbol, status);
	CREATE INDEX IF NOT EXISTS idx_trade_history_symbol_entry_time ON trade_history (symbol, entry_time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: schema creation: %v", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create saves a new position and returns its assigned ID.
func (r *Repository) Create(ctx context.Context, pos *domain.Position) (int64, error) {
	const q = `INSERT INTO positions
		(symbol, direction, entry_price, exit_price, quantity, quality_score, peak_favorable_pct, entry_time, exit_time, status, exit_reason, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		pos.Symbol, string(pos.Direction), pos.EntryPrice, nullFloat(pos.ExitPrice), pos.Quantity,
		pos.QualityScore, pos.PeakFavorablePct, pos.EntryTime, nullTime(pos.ExitTime),
		string(pos.Status), nullString(string(pos.ExitReason)), nullFloat(pos.PNL))
	if err != nil {
		return 0, fmt.Errorf("%w: insert position: %v", ports.ErrQueryFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: position id: %v", ports.ErrQueryFailed, err)
	}
	pos.ID = id
	return id, nil
}

// Update modifies an existing position.
func (r *Repository) Update(ctx context.Context, pos *domain.Position) error {
	const q = `UPDATE positions SET
		exit_price = ?, quality_score = ?, peak_favorable_pct = ?, exit_time = ?, status = ?, exit_reason = ?, pnl = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		nullFloat(pos.ExitPrice), pos.QualityScore, pos.PeakFavorablePct, nullTime(pos.ExitTime),
		string(pos.Status), nullString(string(pos.ExitReason)), nullFloat(pos.PNL), pos.ID)
	if err != nil {
		return fmt.Errorf("%w: update position %d: %v", ports.ErrUpdateFailed, pos.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update position %d: %v", ports.ErrUpdateFailed, pos.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: position %d", ports.ErrNotFound, pos.ID)
	}
	return nil
}

// FindOpenBySymbol retrieves the currently open position for a symbol, if any.
// Returns nil, nil when no open position exists.
func (r *Repository) FindOpenBySymbol(ctx context.Context, symbol string) (*domain.Position, error) {
	const q = selectPosition + ` WHERE symbol = ? AND status = ? ORDER BY entry_time DESC LIMIT 1`
	pos, err := r.scanPosition(r.db.QueryRowContext(ctx, q, symbol, string(domain.StatusOpen)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return pos, err
}

// FindByID retrieves a position by its unique ID. Returns nil, nil if not found.
func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.Position, error) {
	const q = selectPosition + ` WHERE id = ?`
	pos, err := r.scanPosition(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return pos, err
}

const selectPosition = `SELECT id, symbol, direction, entry_price, exit_price, quantity, quality_score,
	peak_favorable_pct, entry_time, exit_time, status, exit_reason, pnl FROM positions`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanPosition(row rowScanner) (*domain.Position, error) {
	var pos domain.Position
	var direction, status string
	var exitPrice, pnl sql.NullFloat64
	var exitTime sql.NullTime
	var exitReason sql.NullString

	err := row.Scan(&pos.ID, &pos.Symbol, &direction, &pos.EntryPrice, &exitPrice, &pos.Quantity,
		&pos.QualityScore, &pos.PeakFavorablePct, &pos.EntryTime, &exitTime, &status, &exitReason, &pnl)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan position: %v", ports.ErrQueryFailed, err)
	}

	pos.Direction = domain.Direction(direction)
	pos.Status = domain.PositionStatus(status)
	if exitPrice.Valid {
		pos.ExitPrice = exitPrice.Float64
	}
	if exitTime.Valid {
		pos.ExitTime = exitTime.Time
	}
	if exitReason.Valid {
		pos.ExitReason = domain.ExitReason(exitReason.String)
	}
	if pnl.Valid {
		pos.PNL = pnl.Float64
	}
	return &pos, nil
}

// CreateTrade saves a new trade record and returns its assigned ID.
func (r *Repository) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const q = `INSERT INTO trade_history
		(position_id, symbol, direction, entry_price, exit_price, quantity, quality_score, pnl, pnl_pct, peak_favorable_pct, entry_time, exit_time, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		nullInt(trade.PositionID), trade.Symbol, string(trade.Direction), trade.EntryPrice, trade.ExitPrice,
		trade.Quantity, trade.QualityScore, trade.PNL, trade.PNLPct, trade.PeakFavorablePct,
		trade.EntryTime, trade.ExitTime, string(trade.ExitReason))
	if err != nil {
		return 0, fmt.Errorf("%w: insert trade: %v", ports.ErrQueryFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: trade id: %v", ports.ErrQueryFailed, err)
	}
	trade.ID = id
	return id, nil
}

// FindBySymbol retrieves the most recent trades for a symbol, newest first.
func (r *Repository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	const q = `SELECT id, position_id, symbol, direction, entry_price, exit_price, quantity, quality_score,
		pnl, pnl_pct, peak_favorable_pct, entry_time, exit_time, exit_reason
		FROM trade_history WHERE symbol = ? ORDER BY exit_time DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query trades: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var positionID sql.NullInt64
		var direction, exitReason string
		if err := rows.Scan(&t.ID, &positionID, &t.Symbol, &direction, &t.EntryPrice, &t.ExitPrice,
			&t.Quantity, &t.QualityScore, &t.PNL, &t.PNLPct, &t.PeakFavorablePct,
			&t.EntryTime, &t.ExitTime, &exitReason); err != nil {
			return nil, fmt.Errorf("%w: scan trade: %v", ports.ErrQueryFailed, err)
		}
		if positionID.Valid {
			t.PositionID = positionID.Int64
		}
		t.Direction = domain.Direction(direction)
		t.ExitReason = domain.ExitReason(exitReason)
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

// TotalProfit calculates the sum of PNL over all recorded trades.
func (r *Repository) TotalProfit(ctx context.Context) (float64, error) {
	var total sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, `SELECT SUM(pnl) FROM trade_history`).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: total profit: %v", ports.ErrQueryFailed, err)
	}
	if !total.Valid {
		return 0, nil
	}
	return total.Float64, nil
}

func nullFloat(v float64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullInt(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

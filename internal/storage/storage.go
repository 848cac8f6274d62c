// Package storage provides a SQLite-backed archive of accepted trades.
// The archive is write-side only: nothing in it is loaded back into the live view.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rewired-gh/tradestream/internal/models"
	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database holding archived trades.
type Storage struct {
	db        *sql.DB
	maxTrades int
	now       func() time.Time
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/tradestream/trades.db.
func New(maxTrades int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "tradestream", "trades.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if maxTrades < 1 {
		maxTrades = 1
	}
	s := &Storage{db: db, maxTrades: maxTrades, now: time.Now}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			price       REAL NOT NULL,
			size        REAL NOT NULL,
			side        TEXT NOT NULL,
			exchange    TEXT NOT NULL,
			direction   TEXT NOT NULL,
			received_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol, seq DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddTrade archives one trade. A trade whose id is already archived is ignored.
func (s *Storage) AddTrade(trade models.Trade) error {
	if err := trade.Validate(); err != nil {
		return fmt.Errorf("invalid trade: %w", err)
	}
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO trades
			(id, timestamp, symbol, price, size, side, exchange, direction, received_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		trade.ID, trade.Timestamp, trade.Symbol, trade.Price, trade.Size,
		string(trade.Side), trade.Exchange, string(trade.PriceChangeDirection),
		s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// Record archives an accepted trade from the stream controller.
func (s *Storage) Record(trade models.Trade) error {
	return s.AddTrade(trade)
}

func (s *Storage) GetTrade(id string) (*models.Trade, error) {
	row := s.db.QueryRow(`SELECT `+tradeCols+` FROM trades WHERE id = ?`, id)
	t, err := scanTrade(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trade not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return t, nil
}

// RecentTrades returns up to limit trades, most recently archived first.
// An empty symbol matches every symbol.
func (s *Storage) RecentTrades(symbol string, limit int) ([]models.Trade, error) {
	query := `SELECT ` + tradeCols + ` FROM trades`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

func (s *Storage) CountTrades() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return n, nil
}

// RotateTrades keeps at most maxTrades most recently archived trades and
// returns how many were removed.
func (s *Storage) RotateTrades() (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM trades WHERE seq NOT IN (
			SELECT seq FROM trades ORDER BY seq DESC LIMIT ?
		)`, s.maxTrades)
	if err != nil {
		return 0, fmt.Errorf("failed to rotate trades: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

const tradeCols = `id, timestamp, symbol, price, size, side, exchange, direction`

func scanTrade(scan func(...any) error) (*models.Trade, error) {
	var t models.Trade
	var side, direction string
	err := scan(
		&t.ID, &t.Timestamp, &t.Symbol, &t.Price, &t.Size,
		&side, &t.Exchange, &direction,
	)
	if err != nil {
		return nil, err
	}
	t.Side = models.Side(side)
	t.PriceChangeDirection = models.Direction(direction)
	return &t, nil
}

package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"poolpulse/pkg/models"
)

// Store provides SQLite-based persistence for refresh cycle history.
type Store struct {
	db *sql.DB
}

// CycleRecord is one refresh cycle's outcome.
type CycleRecord struct {
	ID         int64
	StartedAt  time.Time
	DurationMS int64
	PoolCount  int
	Status     string
	Reason     string
}

// SnapshotRecord is one ranked pool within a cycle snapshot.
type SnapshotRecord struct {
	CycleID      int64
	Rank         int
	PoolID       string
	Name         string
	PairType     string
	Chain        string
	Source       string
	LiquidityUSD float64
	VolumeUSD24h float64
	Score        float64
	APR          sql.NullFloat64
}

// NewStore creates a new SQLite store and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

// migrate runs database schema migrations.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			pool_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS pool_snapshots (
			cycle_id INTEGER NOT NULL,
			rank INTEGER NOT NULL,
			pool_id TEXT NOT NULL,
			name TEXT NOT NULL,
			pair_type TEXT NOT NULL,
			chain TEXT NOT NULL,
			source TEXT NOT NULL,
			liquidity_usd REAL NOT NULL,
			volume_usd_24h REAL NOT NULL,
			score REAL NOT NULL,
			apr REAL,
			PRIMARY KEY (cycle_id, rank),
			FOREIGN KEY (cycle_id) REFERENCES cycles(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_pool ON pool_snapshots(pool_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	log.Info().Msg("Database migrations completed")
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordCycle inserts a cycle row and returns its id.
func (s *Store) RecordCycle(ctx context.Context, rec CycleRecord) (int64, error) {
	query := `INSERT INTO cycles (started_at, duration_ms, pool_count, status, reason)
		VALUES (?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		rec.StartedAt, rec.DurationMS, rec.PoolCount, rec.Status, rec.Reason)
	if err != nil {
		return 0, fmt.Errorf("inserting cycle: %w", err)
	}
	return res.LastInsertId()
}

// SaveSnapshot writes the top pools of a cycle in rank order.
func (s *Store) SaveSnapshot(ctx context.Context, cycleID int64, pools []*models.Pool, topN int) error {
	if topN > 0 && len(pools) > topN {
		pools = pools[:topN]
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pool_snapshots
		(cycle_id, rank, pool_id, name, pair_type, chain, source, liquidity_usd, volume_usd_24h, score, apr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, p := range pools {
		apr := sql.NullFloat64{}
		if p.APR != nil {
			apr = sql.NullFloat64{Float64: *p.APR, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, cycleID, i+1, p.ID, p.Name, string(p.PairType),
			p.Chain, string(p.Source), p.LiquidityUSD, p.VolumeUSD24h, p.Score, apr); err != nil {
			return fmt.Errorf("inserting snapshot for pool %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// RecentCycles retrieves the most recent cycle records, newest first.
func (s *Store) RecentCycles(ctx context.Context, limit int) ([]CycleRecord, error) {
	query := `SELECT id, started_at, duration_ms, pool_count, status, reason
		FROM cycles
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer rows.Close()

	var cycles []CycleRecord
	for rows.Next() {
		var c CycleRecord
		if err := rows.Scan(&c.ID, &c.StartedAt, &c.DurationMS, &c.PoolCount, &c.Status, &c.Reason); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		cycles = append(cycles, c)
	}

	return cycles, rows.Err()
}

// SnapshotForCycle retrieves one cycle's ranked pools in rank order.
func (s *Store) SnapshotForCycle(ctx context.Context, cycleID int64) ([]SnapshotRecord, error) {
	query := `SELECT cycle_id, rank, pool_id, name, pair_type, chain, source,
			liquidity_usd, volume_usd_24h, score, apr
		FROM pool_snapshots
		WHERE cycle_id = ?
		ORDER BY rank ASC`

	rows, err := s.db.QueryContext(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var r SnapshotRecord
		if err := rows.Scan(&r.CycleID, &r.Rank, &r.PoolID, &r.Name, &r.PairType,
			&r.Chain, &r.Source, &r.LiquidityUSD, &r.VolumeUSD24h, &r.Score, &r.APR); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical events to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tick_history (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			week        INTEGER NOT NULL,
			tx_hash     TEXT,
			gas_spent   REAL,
			pool_after  REAL,
			total_value REAL,
			cost_basis  REAL,
			profit_loss REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tick_ts ON tick_history(timestamp)`,

		`CREATE TABLE IF NOT EXISTS fund_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			event_type TEXT,
			amount     REAL,
			pool_after REAL,
			note       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fund_ts ON fund_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS milestones (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			threshold INTEGER NOT NULL,
			week      INTEGER NOT NULL,
			percent   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_milestone_ts ON milestones(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTick(rec *TickRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO tick_history
		(timestamp, week, tx_hash, gas_spent, pool_after, total_value, cost_basis, profit_loss)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.Week, rec.TxHash, rec.GasSpent,
		rec.PoolAfter, rec.TotalValue, rec.CostBasis, rec.ProfitLoss,
	)
	return err
}

func (r *SQLiteRecorder) RecordFundEvent(evt *FundEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO fund_events
		(timestamp, event_type, amount, pool_after, note)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.EventType, evt.Amount, evt.PoolAfter, evt.Note,
	)
	return err
}

func (r *SQLiteRecorder) RecordMilestone(ms *MilestoneRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO milestones
		(timestamp, threshold, week, percent)
		VALUES (?,?,?,?)`,
		time.Now().Unix(), ms.Threshold, ms.Week, ms.Percent,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

// Package persistence provides the SQLite event journal. It is telemetry
// only: nothing stored here is read back into a running town.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/mini-town/internal/engine"
)

// ErrNoMeta is returned by GetMeta for a missing key.
var ErrNoMeta = errors.New("meta key not found")

// DB wraps a SQLite connection for the event journal.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		game_time INTEGER NOT NULL,
		resident TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		meta TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_resident ON events(resident);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type eventRow struct {
	Tick        uint64 `db:"tick"`
	GameTime    int64  `db:"game_time"`
	Resident    string `db:"resident"`
	Category    string `db:"category"`
	Description string `db:"description"`
	Meta        string `db:"meta"`
}

func (r eventRow) event() engine.Event {
	e := engine.Event{
		Tick:        r.Tick,
		Time:        time.UnixMilli(r.GameTime).UTC(),
		Resident:    r.Resident,
		Category:    r.Category,
		Description: r.Description,
	}
	if r.Meta != "" {
		// Rows written by SaveEvents always hold valid JSON.
		_ = json.Unmarshal([]byte(r.Meta), &e.Meta)
	}
	return e
}

// SaveEvents appends events to the journal in one transaction.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range events {
		meta := ""
		if len(e.Meta) > 0 {
			b, err := json.Marshal(e.Meta)
			if err != nil {
				return fmt.Errorf("marshal meta for %q: %w", e.Description, err)
			}
			meta = string(b)
		}
		_, err := tx.Exec(
			`INSERT INTO events (tick, game_time, resident, category, description, meta, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.Tick, e.Time.UnixMilli(), e.Resident, e.Category, e.Description, meta, now,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentEvents returns the most recent events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		`SELECT tick, game_time, resident, category, description, meta
		 FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return toEvents(rows), nil
}

// EventsFor returns the most recent events of one resident, newest first.
func (db *DB) EventsFor(resident string, limit int) ([]engine.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		`SELECT tick, game_time, resident, category, description, meta
		 FROM events WHERE resident = ? ORDER BY id DESC LIMIT ?`,
		resident, limit,
	)
	if err != nil {
		return nil, err
	}
	return toEvents(rows), nil
}

// CountEvents returns the number of journaled events.
func (db *DB) CountEvents() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM events")
	return n, err
}

func toEvents(rows []eventRow) []engine.Event {
	out := make([]engine.Event, len(rows))
	for i, r := range rows {
		out[i] = r.event()
	}
	return out
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNoMeta, key)
	}
	return value, err
}

// SaveRunSummary records where the town stood when it shut down.
func (db *DB) SaveRunSummary(sim *engine.Simulation) error {
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", sim.CurrentTick())); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("last_clock", sim.Clock.Now().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return nil
}

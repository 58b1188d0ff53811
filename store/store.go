// Package store implements the relational persistence the core reads
// and writes: premis_events, feed_queue, and errors. One struct wraps
// *sql.DB, a bootstrap step creates tables if absent, one method per
// operation, every query context-threaded, backed by modernc.org/sqlite,
// a pure-Go, cgo-free driver.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the database handle backing premis_events, feed_queue,
// and errors.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at dsn and
// ensures its schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging store: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	const schema = `
CREATE TABLE IF NOT EXISTS premis_events (
	namespace    TEXT NOT NULL,
	id           TEXT NOT NULL,
	eventid      TEXT NOT NULL,
	eventtype_id TEXT NOT NULL,
	outcome      TEXT,
	date         TEXT NOT NULL,
	PRIMARY KEY (namespace, id, eventtype_id)
);
CREATE TABLE IF NOT EXISTS feed_queue (
	namespace     TEXT NOT NULL,
	id            TEXT NOT NULL,
	status        TEXT NOT NULL,
	node          TEXT,
	failure_count INTEGER NOT NULL DEFAULT 0,
	priority      INTEGER NOT NULL DEFAULT 0,
	release_date  TEXT,
	PRIMARY KEY (namespace, id)
);
CREATE TABLE IF NOT EXISTS errors (
	namespace TEXT NOT NULL,
	id        TEXT NOT NULL,
	eventid   TEXT,
	date      TEXT NOT NULL,
	operation TEXT,
	detail    TEXT
);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PremisEventRow mirrors one row of the premis_events table.
type PremisEventRow struct {
	Namespace   string
	ID          string
	EventID     string
	EventTypeID string
	Outcome     string
	Date        time.Time
}

// PutPremisEvent idempotently REPLACEs a row in premis_events keyed by
// (namespace, id, eventtype_id): recording the same event twice (the
// reingest case) overwrites rather than duplicates.
func (s *Store) PutPremisEvent(ctx context.Context, row PremisEventRow) error {
	const q = `
INSERT OR REPLACE INTO premis_events (namespace, id, eventid, eventtype_id, outcome, date)
VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, row.Namespace, row.ID, row.EventID, row.EventTypeID,
		row.Outcome, row.Date.UTC().Format(time.RFC3339Nano))
	return err
}

// GetPremisEvent returns the stored event of eventTypeID for (namespace,
// id), or ok=false if none exists.
func (s *Store) GetPremisEvent(ctx context.Context, namespace, id, eventTypeID string) (PremisEventRow, bool, error) {
	const q = `
SELECT namespace, id, eventid, eventtype_id, outcome, date
FROM premis_events
WHERE namespace = ? AND id = ? AND eventtype_id = ?`
	row := s.db.QueryRowContext(ctx, q, namespace, id, eventTypeID)
	var out PremisEventRow
	var dateStr string
	err := row.Scan(&out.Namespace, &out.ID, &out.EventID, &out.EventTypeID, &out.Outcome, &dateStr)
	if err == sql.ErrNoRows {
		return PremisEventRow{}, false, nil
	}
	if err != nil {
		return PremisEventRow{}, false, err
	}
	out.Date, err = time.Parse(time.RFC3339Nano, dateStr)
	if err != nil {
		return PremisEventRow{}, false, err
	}
	return out, true, nil
}

// ClearPremisEvents deletes every premis_events row for (namespace, id).
func (s *Store) ClearPremisEvents(ctx context.Context, namespace, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM premis_events WHERE namespace = ? AND id = ?`, namespace, id)
	return err
}

// FeedQueueRow mirrors one row of the feed_queue table.
type FeedQueueRow struct {
	Namespace    string
	ID           string
	Status       string
	Node         string
	FailureCount int
	Priority     int
}

// UpsertFeedQueue inserts or updates the feed_queue row for (namespace,
// id). This is how Job.Update checkpoints a new status after each stage
// run.
func (s *Store) UpsertFeedQueue(ctx context.Context, row FeedQueueRow) error {
	const q = `
INSERT INTO feed_queue (namespace, id, status, node, failure_count, priority)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(namespace, id) DO UPDATE SET
	status = excluded.status,
	node = excluded.node,
	failure_count = excluded.failure_count,
	priority = excluded.priority`
	_, err := s.db.ExecContext(ctx, q, row.Namespace, row.ID, row.Status, row.Node, row.FailureCount, row.Priority)
	return err
}

// GetFeedQueue returns the feed_queue row for (namespace, id).
func (s *Store) GetFeedQueue(ctx context.Context, namespace, id string) (FeedQueueRow, bool, error) {
	const q = `SELECT namespace, id, status, node, failure_count, priority FROM feed_queue WHERE namespace = ? AND id = ?`
	row := s.db.QueryRowContext(ctx, q, namespace, id)
	var out FeedQueueRow
	err := row.Scan(&out.Namespace, &out.ID, &out.Status, &out.Node, &out.FailureCount, &out.Priority)
	if err == sql.ErrNoRows {
		return FeedQueueRow{}, false, nil
	}
	if err != nil {
		return FeedQueueRow{}, false, err
	}
	return out, true, nil
}

// LogError appends a row to the error journal.
func (s *Store) LogError(ctx context.Context, namespace, id, eventID, operation, detail string) error {
	const q = `INSERT INTO errors (namespace, id, eventid, date, operation, detail) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, namespace, id, eventID, time.Now().UTC().Format(time.RFC3339Nano), operation, detail)
	return err
}

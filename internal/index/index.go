// Package index records what each pipeline run extracted, one row per
// (session, extractor), in a SQLite database. The index is bookkeeping for
// dataset assembly; the engine itself never reads it.
package index

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS extractions (
	session_id   TEXT NOT NULL,
	extractor    TEXT NOT NULL,
	tuples       INTEGER NOT NULL,
	events       INTEGER NOT NULL,
	output_path  TEXT NOT NULL,
	processed_at TEXT NOT NULL,
	PRIMARY KEY (session_id, extractor)
);
`

// Extraction is one recorded (session, extractor) result.
type Extraction struct {
	SessionID   string
	Extractor   string
	Tuples      int
	Events      int
	OutputPath  string
	ProcessedAt time.Time
}

// Index is an open extraction index. It expects a single writer; the
// pipeline records results after a batch completes.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index database at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Record inserts or replaces one extraction row.
func (ix *Index) Record(e Extraction) error {
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}
	_, err := ix.db.Exec(
		`INSERT OR REPLACE INTO extractions
		 (session_id, extractor, tuples, events, output_path, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Extractor, e.Tuples, e.Events, e.OutputPath,
		e.ProcessedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record extraction: %w", err)
	}
	return nil
}

// Session returns the recorded extractions for one session.
func (ix *Index) Session(sessionID string) ([]Extraction, error) {
	rows, err := ix.db.Query(
		`SELECT session_id, extractor, tuples, events, output_path, processed_at
		 FROM extractions WHERE session_id = ? ORDER BY extractor`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}
	defer rows.Close()
	return scanExtractions(rows)
}

// Totals returns the number of recorded sessions and tuples per extractor.
func (ix *Index) Totals() (sessions int, tuples map[string]int, err error) {
	row := ix.db.QueryRow(`SELECT COUNT(DISTINCT session_id) FROM extractions`)
	if err := row.Scan(&sessions); err != nil {
		return 0, nil, fmt.Errorf("count sessions: %w", err)
	}

	rows, err := ix.db.Query(`SELECT extractor, SUM(tuples) FROM extractions GROUP BY extractor`)
	if err != nil {
		return 0, nil, fmt.Errorf("sum tuples: %w", err)
	}
	defer rows.Close()

	tuples = make(map[string]int)
	for rows.Next() {
		var extractor string
		var n int
		if err := rows.Scan(&extractor, &n); err != nil {
			return 0, nil, fmt.Errorf("scan totals: %w", err)
		}
		tuples[extractor] = n
	}
	return sessions, tuples, rows.Err()
}

func scanExtractions(rows *sql.Rows) ([]Extraction, error) {
	var out []Extraction
	for rows.Next() {
		var e Extraction
		var at string
		if err := rows.Scan(&e.SessionID, &e.Extractor, &e.Tuples, &e.Events, &e.OutputPath, &at); err != nil {
			return nil, fmt.Errorf("scan extraction: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, at); err == nil {
			e.ProcessedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Package store keeps transcript indexes in an embedded SQLite database and
// answers the same queries as the in-memory index with SQL.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/phobologic/orthoscan/internal/model"
)

const schema = `
	CREATE TABLE IF NOT EXISTS transcripts (
		id        INTEGER PRIMARY KEY,
		side      TEXT NOT NULL,
		name      TEXT NOT NULL,
		seqid     TEXT NOT NULL,
		start_pos INTEGER NOT NULL,
		end_pos   INTEGER NOT NULL,
		strand    TEXT NOT NULL,
		UNIQUE(side, name)
	);
	CREATE INDEX IF NOT EXISTS idx_seqid_strand ON transcripts(side, seqid, strand, start_pos);
`

// Store provides access to the transcript database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a database at path. An empty path or
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load replaces the stored transcripts of side with recs in one transaction.
func (s *Store) Load(side model.Side, recs []model.TranscriptRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM transcripts WHERE side = ?`, string(side)); err != nil {
		return fmt.Errorf("clear side %s: %w", side, err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO transcripts (side, name, seqid, start_pos, end_pos, strand)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		iv := r.Interval
		if _, err := stmt.Exec(string(side), r.Name, iv.Scaffold, iv.Start, iv.End, string(iv.Strand)); err != nil {
			return fmt.Errorf("insert transcript %s: %w", r.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

// Side returns a read-only view of one side's transcripts.
func (s *Store) Side(side model.Side) *SideView {
	return &SideView{db: s.db, side: side}
}

// Count returns how many transcripts are stored for side.
func (s *Store) Count(side model.Side) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM transcripts WHERE side = ?`, string(side)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transcripts: %w", err)
	}
	return n, nil
}

// SideView answers index queries for one side.
type SideView struct {
	db   *sql.DB
	side model.Side
}

// Side returns the side this view reads.
func (v *SideView) Side() model.Side {
	return v.side
}

// Lookup returns the record stored under name.
func (v *SideView) Lookup(name string) (model.TranscriptRecord, bool, error) {
	row := v.db.QueryRow(`
		SELECT name, seqid, start_pos, end_pos, strand
		FROM transcripts
		WHERE side = ? AND name = ?
	`, string(v.side), name)

	r, err := v.scan(row)
	if err == sql.ErrNoRows {
		return model.TranscriptRecord{}, false, nil
	}
	if err != nil {
		return model.TranscriptRecord{}, false, fmt.Errorf("lookup transcript %s: %w", name, err)
	}
	return r, true, nil
}

// ScaffoldSize returns how many transcripts sit on the scaffold/strand.
func (v *SideView) ScaffoldSize(key model.ScaffoldKey) (int, error) {
	var n int
	err := v.db.QueryRow(`
		SELECT COUNT(*)
		FROM transcripts
		WHERE side = ? AND seqid = ? AND strand = ?
	`, string(v.side), key.Scaffold, string(key.Strand)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count scaffold %s: %w", key, err)
	}
	return n, nil
}

// Overlapping returns transcripts on key with MIN(end, ?) > MAX(start, ?),
// ordered by position.
func (v *SideView) Overlapping(key model.ScaffoldKey, start, end int) ([]model.TranscriptRecord, error) {
	rows, err := v.db.Query(`
		SELECT name, seqid, start_pos, end_pos, strand
		FROM transcripts
		WHERE side = ? AND seqid = ? AND strand = ?
			AND start_pos < ? AND MIN(end_pos, ?) > MAX(start_pos, ?)
		ORDER BY start_pos, end_pos, name
	`, string(v.side), key.Scaffold, string(key.Strand), end, end, start)
	if err != nil {
		return nil, fmt.Errorf("query overlaps on %s: %w", key, err)
	}
	defer rows.Close()

	var out []model.TranscriptRecord
	for rows.Next() {
		r, err := v.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (v *SideView) scan(sc scanner) (model.TranscriptRecord, error) {
	var r model.TranscriptRecord
	var strand string
	err := sc.Scan(&r.Name, &r.Interval.Scaffold, &r.Interval.Start, &r.Interval.End, &strand)
	r.Side = v.side
	r.Interval.Strand = model.Strand(strand)
	return r, err
}

// Package history keeps an audit log of booking attempts in an embedded
// SQLite database. Recording is best-effort: a broken history file must
// never stop the engine.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Attempt is one recorded booking attempt or waiting-list promotion.
type Attempt struct {
	At         time.Time
	UserName   string
	Day        string
	TargetDate string
	SlotTime   string
	Outcome    string
	Message    string
}

type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	at          TIMESTAMP NOT NULL,
	user_name   TEXT NOT NULL,
	day         TEXT NOT NULL,
	target_date TEXT NOT NULL,
	slot_time   TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_attempts_at ON attempts(at DESC);
`

// Open opens (creating if needed) the history database at path.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db, log: logger.With().Str("component", "history").Logger()}, nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one attempt. Errors are logged, not returned: history
// is an observability aid, not engine state.
func (s *Store) Record(a Attempt) {
	if s == nil {
		return
	}
	_, err := s.db.Exec(
		`INSERT INTO attempts(at, user_name, day, target_date, slot_time, outcome, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.At.UTC(), a.UserName, a.Day, a.TargetDate, a.SlotTime, a.Outcome, a.Message,
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("cannot record attempt")
	}
}

// Recent returns the newest attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, user_name, day, target_date, slot_time, outcome, message
		 FROM attempts ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.At, &a.UserName, &a.Day, &a.TargetDate, &a.SlotTime, &a.Outcome, &a.Message); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

package tasks

import (
	"database/sql"
	"fmt"
	"time"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS plays (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	track TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	played_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Play is one recorded track transition.
type Play struct {
	Track    string
	Color    string
	PlayedAt time.Time
}

// History records track transitions observed by the poller.
type History struct {
	db *sql.DB
}

// NewHistory wraps an open database, applying the schema if needed.
func NewHistory(db *sql.DB) (*History, error) {
	if _, err := db.Exec(historySchema); err != nil {
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Record stores one play.
func (h *History) Record(track, color string) error {
	if _, err := h.db.Exec(
		"INSERT INTO plays (track, color, played_at) VALUES (?, ?, ?)",
		track, color, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}
	return nil
}

// Recent returns up to limit plays, newest first.
func (h *History) Recent(limit int) ([]Play, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := h.db.Query(
		"SELECT track, color, played_at FROM plays ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []Play
	for rows.Next() {
		var p Play
		if err := rows.Scan(&p.Track, &p.Color, &p.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		plays = append(plays, p)
	}

	return plays, rows.Err()
}

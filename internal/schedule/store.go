// Package schedule persists channels and their program schedules and serves
// the bounded schedule windows the playout resolver works from.
package schedule

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // database/sql driver

	"github.com/airwavetv/airwave/internal/channel"
)

// Window bounds for ScheduleWindow queries: enough lookback to always
// contain the active program and enough lookahead for near-future context.
const (
	windowLookback  = 4 * time.Hour
	windowLookahead = 8 * time.Hour
)

// Store is a SQLite-backed schedule provider.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the schedule database at the given
// path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// modernc sqlite allows one writer; a single connection avoids lock
	// contention between the write path and window queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS channels (
		number INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		stealth INTEGER NOT NULL DEFAULT 0,
		icon TEXT NOT NULL DEFAULT '',
		group_title TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS programs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_number INTEGER NOT NULL REFERENCES channels(number) ON DELETE CASCADE,
		start_ms INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		title TEXT NOT NULL,
		icon TEXT NOT NULL DEFAULT '',
		content_kind TEXT NOT NULL,
		server_url TEXT NOT NULL DEFAULT '',
		auth_token TEXT NOT NULL DEFAULT '',
		rating_key TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_programs_channel_start ON programs(channel_number, start_ms);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveChannel inserts or replaces a channel row.
func (s *Store) SaveChannel(ch channel.Channel) error {
	_, err := s.db.Exec(`
		INSERT INTO channels (number, name, stealth, icon, group_title)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			name = excluded.name,
			stealth = excluded.stealth,
			icon = excluded.icon,
			group_title = excluded.group_title
	`, ch.Number, ch.Name, ch.Stealth, ch.Icon, ch.GroupTitle)
	if err != nil {
		return fmt.Errorf("saving channel %d: %w", ch.Number, err)
	}
	return nil
}

// ReplacePrograms swaps a channel's schedule for the given programs in one
// transaction. The core never mutates programs; this is the external
// schedule construction's write path.
func (s *Store) ReplacePrograms(channelNumber int, programs []channel.Program) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM programs WHERE channel_number = ?`, channelNumber); err != nil {
		return fmt.Errorf("clearing schedule for channel %d: %w", channelNumber, err)
	}

	for _, p := range programs {
		_, err := tx.Exec(`
			INSERT INTO programs (channel_number, start_ms, duration_ms, title, icon, content_kind, server_url, auth_token, rating_key)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, channelNumber, p.Start.UnixMilli(), p.Duration.Milliseconds(), p.Title, p.Icon,
			string(p.Content.Kind), p.Content.ServerURL, p.Content.AuthToken, p.Content.RatingKey)
		if err != nil {
			return fmt.Errorf("inserting program %q: %w", p.Title, err)
		}
	}

	return tx.Commit()
}

// Channels returns all channels ordered by number.
func (s *Store) Channels() ([]channel.Channel, error) {
	rows, err := s.db.Query(`
		SELECT number, name, stealth, icon, group_title
		FROM channels ORDER BY number
	`)
	if err != nil {
		return nil, fmt.Errorf("querying channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []channel.Channel
	for rows.Next() {
		var ch channel.Channel
		if err := rows.Scan(&ch.Number, &ch.Name, &ch.Stealth, &ch.Icon, &ch.GroupTitle); err != nil {
			return nil, fmt.Errorf("scanning channel: %w", err)
		}
		channels = append(channels, ch)
	}

	return channels, rows.Err()
}

// Channel returns one channel by number. The second return value reports
// whether it exists.
func (s *Store) Channel(number int) (channel.Channel, bool, error) {
	var ch channel.Channel
	err := s.db.QueryRow(`
		SELECT number, name, stealth, icon, group_title
		FROM channels WHERE number = ?
	`, number).Scan(&ch.Number, &ch.Name, &ch.Stealth, &ch.Icon, &ch.GroupTitle)
	if err == sql.ErrNoRows {
		return channel.Channel{}, false, nil
	}
	if err != nil {
		return channel.Channel{}, false, fmt.Errorf("querying channel %d: %w", number, err)
	}
	return ch, true, nil
}

// ScheduleWindow returns a channel's programs restricted to the bounded
// window around now, ordered by start time ascending. It implements
// playout.ScheduleProvider.
func (s *Store) ScheduleWindow(channelNumber int, now time.Time) ([]channel.Program, error) {
	winStart := now.Add(-windowLookback).UnixMilli()
	winEnd := now.Add(windowLookahead).UnixMilli()

	return s.queryPrograms(`
		SELECT channel_number, start_ms, duration_ms, title, icon, content_kind, server_url, auth_token, rating_key
		FROM programs
		WHERE channel_number = ? AND start_ms + duration_ms > ? AND start_ms < ?
		ORDER BY start_ms
	`, channelNumber, winStart, winEnd)
}

// ProgramsBetween returns every channel's programs overlapping [from, to),
// keyed by channel number and ordered by start time. Used by the guide.
func (s *Store) ProgramsBetween(from, to time.Time) (map[int][]channel.Program, error) {
	programs, err := s.queryPrograms(`
		SELECT channel_number, start_ms, duration_ms, title, icon, content_kind, server_url, auth_token, rating_key
		FROM programs
		WHERE start_ms + duration_ms > ? AND start_ms < ?
		ORDER BY channel_number, start_ms
	`, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, err
	}

	byChannel := make(map[int][]channel.Program)
	for _, p := range programs {
		byChannel[p.ChannelNumber] = append(byChannel[p.ChannelNumber], p)
	}
	return byChannel, nil
}

// Lint checks every channel's full schedule for defects. Defects are
// reported, never repaired.
func (s *Store) Lint() ([]channel.Issue, error) {
	channels, err := s.Channels()
	if err != nil {
		return nil, err
	}

	var issues []channel.Issue
	for _, ch := range channels {
		programs, err := s.queryPrograms(`
			SELECT channel_number, start_ms, duration_ms, title, icon, content_kind, server_url, auth_token, rating_key
			FROM programs WHERE channel_number = ? ORDER BY start_ms
		`, ch.Number)
		if err != nil {
			return nil, err
		}
		issues = append(issues, channel.Lint(programs)...)
	}

	return issues, nil
}

func (s *Store) queryPrograms(query string, args ...any) ([]channel.Program, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying programs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var programs []channel.Program
	for rows.Next() {
		var (
			p          channel.Program
			startMs    int64
			durationMs int64
			kind       string
		)
		if err := rows.Scan(&p.ChannelNumber, &startMs, &durationMs, &p.Title, &p.Icon,
			&kind, &p.Content.ServerURL, &p.Content.AuthToken, &p.Content.RatingKey); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		p.Start = time.UnixMilli(startMs).UTC()
		p.Duration = time.Duration(durationMs) * time.Millisecond
		p.Content.Kind = channel.ContentKind(kind)
		programs = append(programs, p)
	}

	return programs, rows.Err()
}

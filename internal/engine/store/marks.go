package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ChannelMark is an operator bookmark on a channel.
type ChannelMark struct {
	ChannelID    string    `json:"channel_id"`
	ChannelTitle string    `json:"channel_title,omitempty"`
	Marked       bool      `json:"marked"`
	Priority     bool      `json:"priority"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MarkUpdate changes a mark. Nil fields keep the stored value; a new mark
// defaults to marked and not priority.
type MarkUpdate struct {
	ChannelID    string
	ChannelTitle *string
	Marked       *bool
	Priority     *bool
	Note         *string
}

const markCols = `channel_id, channel_title, marked, priority, note, created_at, updated_at`

func scanMark(sc interface{ Scan(...any) error }) (*ChannelMark, error) {
	var (
		m                ChannelMark
		title, note      sql.NullString
		marked, priority int
		created, updated string
	)
	if err := sc.Scan(&m.ChannelID, &title, &marked, &priority, &note, &created, &updated); err != nil {
		return nil, err
	}
	m.ChannelTitle = title.String
	m.Note = note.String
	m.Marked = marked != 0
	m.Priority = priority != 0
	m.CreatedAt = parseTime(created)
	m.UpdatedAt = parseTime(updated)
	return &m, nil
}

// ChannelMark returns the mark for channelID, or ErrNotFound.
func (s *Store) ChannelMark(ctx context.Context, channelID string) (*ChannelMark, error) {
	m, err := scanMark(s.queryRow(ctx, `SELECT `+markCols+` FROM channel_marks WHERE channel_id = ?`, channelID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("channel mark %q: %w", channelID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load channel mark: %w", err)
	}
	return m, nil
}

// SaveChannelMark merges u into the stored mark and returns the result.
func (s *Store) SaveChannelMark(ctx context.Context, u MarkUpdate) (*ChannelMark, error) {
	u.ChannelID = strings.TrimSpace(u.ChannelID)
	if u.ChannelID == "" {
		return nil, errors.New("channel_id is required")
	}
	cur, err := s.ChannelMark(ctx, u.ChannelID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	now := s.now()
	next := ChannelMark{ChannelID: u.ChannelID, Marked: true, CreatedAt: now}
	if cur != nil {
		next = *cur
	}
	if u.ChannelTitle != nil {
		next.ChannelTitle = strings.TrimSpace(*u.ChannelTitle)
	}
	if u.Marked != nil {
		next.Marked = *u.Marked
	}
	if u.Priority != nil {
		next.Priority = *u.Priority
	}
	if u.Note != nil {
		next.Note = strings.TrimSpace(*u.Note)
	}
	next.UpdatedAt = now

	err = s.exec(ctx, s.db,
		`INSERT INTO channel_marks (`+markCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (channel_id) DO UPDATE SET
		   channel_title = excluded.channel_title, marked = excluded.marked,
		   priority = excluded.priority, note = excluded.note, updated_at = excluded.updated_at`,
		next.ChannelID, emptyNull(next.ChannelTitle), boolInt(next.Marked), boolInt(next.Priority),
		emptyNull(next.Note), formatTime(next.CreatedAt), formatTime(next.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("store: save channel mark: %w", err)
	}
	return &next, nil
}

// ChannelMarks lists marks, most recently updated first. When markedOnly is
// set, unmarked rows are skipped.
func (s *Store) ChannelMarks(ctx context.Context, markedOnly bool, limit int) ([]ChannelMark, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	q := `SELECT ` + markCols + ` FROM channel_marks`
	if markedOnly {
		q += ` WHERE marked = 1`
	}
	q += ` ORDER BY priority DESC, updated_at DESC LIMIT ?`
	rows, err := s.query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list channel marks: %w", err)
	}
	defer rows.Close()
	var out []ChannelMark
	for rows.Next() {
		m, err := scanMark(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan channel mark: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// DeleteChannelMark removes the mark for channelID.
func (s *Store) DeleteChannelMark(ctx context.Context, channelID string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM channel_marks WHERE channel_id = ?`), channelID)
	if err != nil {
		return fmt.Errorf("store: delete channel mark: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("channel mark %q: %w", channelID, ErrNotFound)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

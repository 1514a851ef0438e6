package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/manualqa/internal/db"
	"github.com/ziadkadry99/manualqa/internal/llm"
)

// ErrSessionNotFound is returned when a session ID is unknown.
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo summarizes a persisted session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStore persists sessions and their turns in SQLite.
type SessionStore struct {
	db *db.DB
}

// NewSessionStore creates a new session store.
func NewSessionStore(database *db.DB) *SessionStore {
	return &SessionStore{db: database}
}

// Create inserts a new empty session.
func (s *SessionStore) Create(ctx context.Context) (*Session, error) {
	sess := NewSession(uuid.New().String())
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)`,
		sess.ID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// Load restores a session with its full history.
func (s *SessionStore) Load(ctx context.Context, id string) (*Session, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns WHERE session_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(&role, &t.Content, &t.At); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.Role = llm.Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return RestoreSession(id, turns), nil
}

// AppendTurns adds turns after the last stored one, in order.
func (s *SessionStore) AppendTurns(ctx context.Context, sessionID string, turns ...Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM turns WHERE session_id = ?`, sessionID,
	).Scan(&next); err != nil {
		return fmt.Errorf("reading turn sequence: %w", err)
	}

	for i, t := range turns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			sessionID, next+i, string(t.Role), t.Content, t.At,
		); err != nil {
			return fmt.Errorf("inserting turn: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return tx.Commit()
}

// List returns all sessions, most recently active first.
func (s *SessionStore) List(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.created_at, s.updated_at, COUNT(t.seq)
		FROM sessions s LEFT JOIN turns t ON t.session_id = s.id
		GROUP BY s.id ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.UpdatedAt, &info.Turns); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a session and its turns.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"meal-calendar/internal/calendar"
	"meal-calendar/internal/telegram/sessiondb"
)

// SessionRepository persists the calendar state of each chat.
type SessionRepository struct {
	queries *sessiondb.Queries
	db      *sql.DB
	ttl     time.Duration
	now     func() time.Time
}

// NewSessionRepository creates a repository whose sessions expire ttl after
// their last save.
func NewSessionRepository(db *sql.DB, ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		queries: sessiondb.New(db),
		db:      db,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load returns the calendar state of a chat. ok is false when the chat has
// no session or it expired.
func (sr *SessionRepository) Load(ctx context.Context, chatID int64) (state calendar.State, ok bool, err error) {
	raw, err := sr.queries.GetActiveSession(ctx, sessiondb.GetActiveSessionParams{
		ChatID:    chatID,
		ExpiresAt: sr.timestamp(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return calendar.State{}, false, nil
		}
		return calendar.State{}, false, fmt.Errorf("failed to load session: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return calendar.State{}, false, fmt.Errorf("failed to decode session state: %w", err)
	}
	return state, true, nil
}

// Save stores the calendar state of a chat and extends its expiry.
func (sr *SessionRepository) Save(ctx context.Context, chatID int64, state calendar.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	now := sr.timestamp()
	err = sr.queries.UpsertSession(ctx, sessiondb.UpsertSessionParams{
		ChatID:      chatID,
		ContextData: string(raw),
		ExpiresAt:   now.Add(sr.ttl),
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the session of a chat.
func (sr *SessionRepository) Delete(ctx context.Context, chatID int64) error {
	return sr.queries.DeleteSession(ctx, chatID)
}

// CleanupExpired removes all expired sessions and returns how many were removed.
func (sr *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	return sr.queries.CleanupExpiredSessions(ctx, sr.timestamp())
}

// timestamp is stored as text, so every value is UTC at second precision to
// keep the comparisons in SQL ordered.
func (sr *SessionRepository) timestamp() time.Time {
	return sr.now().UTC().Truncate(time.Second)
}

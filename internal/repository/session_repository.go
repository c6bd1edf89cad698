package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edukoala/internal/models"
)

// SessionRepository stores login sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := r.db.Rebind(`INSERT INTO sessions (id, user_id, expires_at, created_at, revoked, ip_address, user_agent)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, session.ID, session.UserID, session.ExpiresAt, session.CreatedAt, session.Revoked, session.IPAddress, session.UserAgent); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByID loads a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := r.db.Rebind(`SELECT id, user_id, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
FROM sessions WHERE id = ?`)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// Revoke marks a session as revoked. Revoking an unknown or already revoked
// session is a no-op.
func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	query := r.db.Rebind(`UPDATE sessions SET revoked = ?, revoked_at = ? WHERE id = ? AND revoked = ?`)
	if _, err := r.db.ExecContext(ctx, query, true, time.Now().UTC(), id, false); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

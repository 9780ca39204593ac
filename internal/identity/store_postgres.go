package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

// PostgresStore persists principals in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*Principal, error) {
	query := `
		SELECT id, email, username, first_name, last_name, role,
		       account_status, email_verified, two_factor_enabled, last_activity_at
		FROM principals
		WHERE id = $1
	`
	var (
		rawID          uuid.UUID
		p              Principal
		role           string
		status         string
		lastActivityAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(
		&rawID, &p.Email, &p.Username, &p.FirstName, &p.LastName,
		&role, &status, &p.EmailVerified, &p.TwoFactorEnabled, &lastActivityAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		// Connection failures, timeouts and cancelled contexts all resolve to
		// unavailable so the loader applies its degrade-or-fail-closed split.
		return nil, fmt.Errorf("find principal: %w", sentinel.ErrUnavailable)
	}

	p.ID = id.UserID(rawID)
	p.Role, err = id.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("principal %s: %w", rawID, err)
	}
	p.AccountStatus, err = id.ParseAccountStatus(status)
	if err != nil {
		return nil, fmt.Errorf("principal %s: %w", rawID, err)
	}
	if lastActivityAt.Valid {
		p.LastActivityAt = lastActivityAt.Time
	}
	return &p, nil
}

func (s *PostgresStore) TouchActivity(ctx context.Context, userID id.UserID, at time.Time) error {
	query := `
		UPDATE principals
		SET last_activity_at = $2, login_count = login_count + 1
		WHERE id = $1
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(userID), at); err != nil {
		return fmt.Errorf("touch activity: %w", sentinel.ErrUnavailable)
	}
	return nil
}

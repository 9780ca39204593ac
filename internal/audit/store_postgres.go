package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

// PostgresStore persists audit records in the audit_records table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	if !record.Action.Valid() {
		return fmt.Errorf("append audit record: unknown action %q", record.Action)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	query := `
		INSERT INTO audit_records (
			id, occurred_at, actor_id, action, target_type, target_id,
			reason, before_state, after_state, ip_address, user_agent, request_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.Timestamp, record.ActorID.String(), string(record.Action),
		string(record.TargetType), record.TargetID, nullable(record.Reason),
		nullableJSON(record.Before), nullableJSON(record.After),
		nullable(record.IP), nullable(record.UserAgent), nullable(record.RequestID))
	if err != nil {
		return fmt.Errorf("%w: append audit record: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) ListByTarget(ctx context.Context, targetType TargetType, targetID string) ([]Record, error) {
	query := selectRecords + ` WHERE target_type = $1 AND target_id = $2 ORDER BY occurred_at DESC`
	rows, err := s.db.QueryContext(ctx, query, string(targetType), targetID)
	if err != nil {
		return nil, fmt.Errorf("%w: list audit records: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) ListByActor(ctx context.Context, actorID id.UserID) ([]Record, error) {
	query := selectRecords + ` WHERE actor_id = $1 ORDER BY occurred_at DESC`
	rows, err := s.db.QueryContext(ctx, query, actorID.String())
	if err != nil {
		return nil, fmt.Errorf("%w: list audit records: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

const selectRecords = `
	SELECT id, occurred_at, actor_id, action, target_type, target_id,
	       reason, before_state, after_state, ip_address, user_agent, request_id
	FROM audit_records`

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			r       Record
			actor   string
			action  string
			target  string
			reason  sql.NullString
			before  []byte
			after   []byte
			ip      sql.NullString
			ua      sql.NullString
			reqID   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Timestamp, &actor, &action, &target, &r.TargetID,
			&reason, &before, &after, &ip, &ua, &reqID); err != nil {
			return nil, fmt.Errorf("%w: scan audit record: %v", sentinel.ErrUnavailable, err)
		}
		actorID, err := id.ParseUserID(actor)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		r.ActorID = actorID
		r.Action = Action(action)
		r.TargetType = TargetType(target)
		r.Reason = reason.String
		r.Before = before
		r.After = after
		r.IP = ip.String
		r.UserAgent = ua.String
		r.RequestID = reqID.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate audit records: %v", sentinel.ErrUnavailable, err)
	}
	return records, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

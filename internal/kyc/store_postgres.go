package kyc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

// PostgresStore persists cases in the verification_cases and
// verification_steps tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *VerificationCase) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin create case: %v", sentinel.ErrUnavailable, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO verification_cases (
			id, user_id, status, first_name, last_name, date_of_birth,
			nationality, address, phone_number, risk_tier, rejection_reason,
			reviewed_by, reviewed_at, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = tx.ExecContext(ctx, query,
		c.ID.String(), c.UserID.String(), c.Status.String(),
		c.PersonalData.FirstName, c.PersonalData.LastName, c.PersonalData.DateOfBirth,
		c.PersonalData.Nationality, c.PersonalData.Address, c.PersonalData.PhoneNumber,
		nullString(c.RiskTier.String()), nullString(c.RejectionReason),
		nullUserID(c.ReviewedBy), c.ReviewedAt, c.ExpiresAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert case: %v", sentinel.ErrUnavailable, err)
	}

	if err := upsertSteps(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit create case: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, c *VerificationCase) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin update case: %v", sentinel.ErrUnavailable, err)
	}
	defer tx.Rollback()

	query := `
		UPDATE verification_cases SET
			status = $2, first_name = $3, last_name = $4, date_of_birth = $5,
			nationality = $6, address = $7, phone_number = $8, risk_tier = $9,
			rejection_reason = $10, reviewed_by = $11, reviewed_at = $12,
			expires_at = $13, updated_at = $14
		WHERE id = $1`

	result, err := tx.ExecContext(ctx, query,
		c.ID.String(), c.Status.String(),
		c.PersonalData.FirstName, c.PersonalData.LastName, c.PersonalData.DateOfBirth,
		c.PersonalData.Nationality, c.PersonalData.Address, c.PersonalData.PhoneNumber,
		nullString(c.RiskTier.String()), nullString(c.RejectionReason),
		nullUserID(c.ReviewedBy), c.ReviewedAt, c.ExpiresAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: update case: %v", sentinel.ErrUnavailable, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update case: %v", sentinel.ErrUnavailable, err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}

	if err := upsertSteps(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit update case: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, caseID id.CaseID) (*VerificationCase, error) {
	return s.findOne(ctx, selectCase+` WHERE id = $1`, caseID.String())
}

func (s *PostgresStore) FindLatestByUser(ctx context.Context, userID id.UserID) (*VerificationCase, error) {
	return s.findOne(ctx,
		selectCase+` WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`,
		userID.String())
}

func (s *PostgresStore) FindOpenByUser(ctx context.Context, userID id.UserID) (*VerificationCase, error) {
	return s.findOne(ctx,
		selectCase+` WHERE user_id = $1 AND status IN ('pending', 'under_review') LIMIT 1`,
		userID.String())
}

func (s *PostgresStore) FindValidApprovalByUser(ctx context.Context, userID id.UserID, at time.Time) (*VerificationCase, error) {
	return s.findOne(ctx,
		selectCase+` WHERE user_id = $1 AND status = 'approved'
			AND (expires_at IS NULL OR expires_at > $2) LIMIT 1`,
		userID.String(), at)
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]CaseSummary, error) {
	where, args := buildFilter(filter)
	query := `
		SELECT id, user_id, status, risk_tier, reviewed_by, created_at, updated_at
		FROM verification_cases` + where + orderBy(filter)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list cases: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var summaries []CaseSummary
	for rows.Next() {
		var (
			summary  CaseSummary
			caseID   string
			userID   string
			status   string
			riskTier sql.NullString
			reviewer sql.NullString
		)
		if err := rows.Scan(&caseID, &userID, &status, &riskTier, &reviewer,
			&summary.CreatedAt, &summary.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan case summary: %v", sentinel.ErrUnavailable, err)
		}
		if summary.ID, err = id.ParseCaseID(caseID); err != nil {
			return nil, fmt.Errorf("scan case summary: %w", err)
		}
		if summary.UserID, err = id.ParseUserID(userID); err != nil {
			return nil, fmt.Errorf("scan case summary: %w", err)
		}
		if summary.Status, err = id.ParseCaseStatus(status); err != nil {
			return nil, fmt.Errorf("scan case summary: %w", err)
		}
		if summary.RiskTier, err = id.ParseRiskTier(riskTier.String); err != nil {
			return nil, fmt.Errorf("scan case summary: %w", err)
		}
		if reviewer.Valid {
			reviewerID, err := id.ParseUserID(reviewer.String)
			if err != nil {
				return nil, fmt.Errorf("scan case summary: %w", err)
			}
			summary.ReviewedBy = &reviewerID
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate case summaries: %v", sentinel.ErrUnavailable, err)
	}
	return summaries, nil
}

func (s *PostgresStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := buildFilter(filter)
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_cases`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: count cases: %v", sentinel.ErrUnavailable, err)
	}
	return total, nil
}

const selectCase = `
	SELECT id, user_id, status, first_name, last_name, date_of_birth,
	       nationality, address, phone_number, risk_tier, rejection_reason,
	       reviewed_by, reviewed_at, expires_at, created_at, updated_at
	FROM verification_cases`

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*VerificationCase, error) {
	var (
		c        VerificationCase
		caseID   string
		userID   string
		status   string
		riskTier sql.NullString
		reason   sql.NullString
		reviewer sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&caseID, &userID, &status,
		&c.PersonalData.FirstName, &c.PersonalData.LastName, &c.PersonalData.DateOfBirth,
		&c.PersonalData.Nationality, &c.PersonalData.Address, &c.PersonalData.PhoneNumber,
		&riskTier, &reason, &reviewer, &c.ReviewedAt, &c.ExpiresAt,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find case: %v", sentinel.ErrUnavailable, err)
	}

	if c.ID, err = id.ParseCaseID(caseID); err != nil {
		return nil, fmt.Errorf("find case: %w", err)
	}
	if c.UserID, err = id.ParseUserID(userID); err != nil {
		return nil, fmt.Errorf("find case: %w", err)
	}
	if c.Status, err = id.ParseCaseStatus(status); err != nil {
		return nil, fmt.Errorf("find case: %w", err)
	}
	if c.RiskTier, err = id.ParseRiskTier(riskTier.String); err != nil {
		return nil, fmt.Errorf("find case: %w", err)
	}
	c.RejectionReason = reason.String
	if reviewer.Valid {
		reviewerID, err := id.ParseUserID(reviewer.String)
		if err != nil {
			return nil, fmt.Errorf("find case: %w", err)
		}
		c.ReviewedBy = &reviewerID
	}

	if err := s.loadSteps(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) loadSteps(ctx context.Context, c *VerificationCase) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, step_order, status, updated_at FROM verification_steps
		WHERE case_id = $1 ORDER BY step_order`, c.ID.String())
	if err != nil {
		return fmt.Errorf("%w: load steps: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var step Step
		var name, status string
		if err := rows.Scan(&name, &step.Order, &status, &step.UpdatedAt); err != nil {
			return fmt.Errorf("%w: scan step: %v", sentinel.ErrUnavailable, err)
		}
		step.Name = id.StepName(name)
		step.Status = id.StepStatus(status)
		c.Steps = append(c.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate steps: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func upsertSteps(ctx context.Context, tx *sql.Tx, c *VerificationCase) error {
	query := `
		INSERT INTO verification_steps (case_id, name, step_order, status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (case_id, name) DO UPDATE
		SET step_order = EXCLUDED.step_order, status = EXCLUDED.status,
		    updated_at = EXCLUDED.updated_at`
	for _, step := range c.Steps {
		_, err := tx.ExecContext(ctx, query,
			c.ID.String(), step.Name.String(), step.Order, step.Status.String(), step.UpdatedAt)
		if err != nil {
			return fmt.Errorf("%w: upsert step %s: %v", sentinel.ErrUnavailable, step.Name, err)
		}
	}
	return nil
}

func buildFilter(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status.String())
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	if !filter.UserID.IsNil() {
		args = append(args, filter.UserID.String())
		clauses = append(clauses, "user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.RiskTier != "" {
		args = append(args, filter.RiskTier.String())
		clauses = append(clauses, "risk_tier = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// orderBy maps the filter sort to an allow-listed column. Unknown values
// fall back to created_at; caller input never reaches the query text.
func orderBy(filter ListFilter) string {
	column := "created_at"
	switch filter.SortBy {
	case "updated_at", "status":
		column = filter.SortBy
	}
	direction := " ASC"
	if filter.SortDesc {
		direction = " DESC"
	}
	return " ORDER BY " + column + direction
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullUserID(userID *id.UserID) any {
	if userID == nil {
		return nil
	}
	return userID.String()
}

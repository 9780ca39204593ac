//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// schema mirrors the production tables. Applied once per container.
const schema = `
CREATE TABLE IF NOT EXISTS principals (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'user',
	account_status TEXT NOT NULL DEFAULT 'active',
	email_verified BOOLEAN NOT NULL DEFAULT FALSE,
	two_factor_enabled BOOLEAN NOT NULL DEFAULT FALSE,
	login_count BIGINT NOT NULL DEFAULT 0,
	last_activity_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS verification_cases (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	status TEXT NOT NULL,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	date_of_birth TIMESTAMPTZ NOT NULL,
	nationality TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	risk_tier TEXT,
	rejection_reason TEXT,
	reviewed_by UUID,
	reviewed_at TIMESTAMPTZ,
	expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cases_user ON verification_cases (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_cases_status ON verification_cases (status);

CREATE TABLE IF NOT EXISTS verification_steps (
	case_id UUID NOT NULL REFERENCES verification_cases (id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	step_order INT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (case_id, name)
);

CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	case_id UUID NOT NULL REFERENCES verification_cases (id) ON DELETE CASCADE,
	user_id UUID NOT NULL,
	document_type TEXT NOT NULL,
	status TEXT NOT NULL,
	file_name TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	sha256 TEXT NOT NULL,
	locator TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_case ON documents (case_id);

CREATE TABLE IF NOT EXISTS audit_records (
	id UUID PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	actor_id UUID NOT NULL,
	action TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id TEXT NOT NULL,
	reason TEXT,
	before_state JSONB,
	after_state JSONB,
	ip_address TEXT,
	user_agent TEXT,
	request_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_records (target_type, target_id, occurred_at DESC);
`

// PostgresContainer wraps a testcontainers Postgres instance with the
// application schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("verigate_test"),
		tcpostgres.WithUsername("verigate"),
		tcpostgres.WithPassword("verigate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})

	return &PostgresContainer{Container: container, URL: url, DB: db}
}

// Truncate empties the mutable tables. Use between tests for isolation.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		TRUNCATE audit_records, documents, verification_steps,
		         verification_cases, principals CASCADE`)
	return err
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS grants (
	id         BIGINT PRIMARY KEY,
	funder     TEXT NOT NULL,
	amount     NUMERIC(20, 0) NOT NULL CHECK (amount >= 0),
	info       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	`CREATE TABLE IF NOT EXISTS grant_projects (
	grant_id    BIGINT NOT NULL REFERENCES grants (id),
	id          BIGINT NOT NULL,
	applicant   TEXT NOT NULL,
	data        TEXT NOT NULL,
	is_accepted BOOLEAN NOT NULL DEFAULT false,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (grant_id, id)
);`,
	`CREATE TABLE IF NOT EXISTS project_votes (
	grant_id   BIGINT NOT NULL,
	project_id BIGINT NOT NULL,
	seq        BIGINT NOT NULL,
	voter      TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (grant_id, project_id, seq),
	FOREIGN KEY (grant_id, project_id) REFERENCES grant_projects (grant_id, id)
);`,
	`CREATE INDEX IF NOT EXISTS idx_grant_projects_accepted ON grant_projects (grant_id) WHERE is_accepted;`,
}

// Migrate applies the registry schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

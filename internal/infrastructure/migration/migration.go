package migration

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Migration is one named schema step.
type Migration struct {
	Name string
	Up   func(ctx context.Context, pool *pgxpool.Pool) error
}

// RunMigrations executes all schema migrations on startup. Every step is
// idempotent, so reruns on restart are safe.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("Starting database migrations")

	migrations := []Migration{
		{Name: "create_users", Up: exec(`
			CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				password_digest TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);`)},
		{Name: "create_profiles", Up: exec(`
			CREATE TABLE IF NOT EXISTS profiles (
				user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
				document JSONB NOT NULL DEFAULT '{}'::jsonb,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);`)},
		{Name: "create_refresh_tokens", Up: exec(`
			CREATE TABLE IF NOT EXISTS refresh_tokens (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token_hash TEXT NOT NULL UNIQUE,
				expires_at TIMESTAMPTZ NOT NULL,
				revoked BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);`)},
		{Name: "create_resume_jobs", Up: exec(`
			CREATE TABLE IF NOT EXISTS resume_jobs (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL,
				job_description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				error TEXT NOT NULL DEFAULT '',
				metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
				overrides JSONB NOT NULL DEFAULT '{}'::jsonb,
				resume_id UUID,
				language TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);`)},
		{Name: "create_resumes", Up: exec(`
			CREATE TABLE IF NOT EXISTS resumes (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL,
				title TEXT NOT NULL DEFAULT 'Resume',
				document JSONB NOT NULL DEFAULT '{}'::jsonb,
				pdf BYTEA,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);`)},
		{Name: "index_resume_jobs_user", Up: exec(`
			CREATE INDEX IF NOT EXISTS idx_resume_jobs_user ON resume_jobs(user_id);`)},
	}

	for _, m := range migrations {
		if err := m.Up(ctx, pool); err != nil {
			slog.Error("Migration failed", "name", m.Name, "error", err)
			return err
		}
		slog.Info("Migration completed", "name", m.Name)
	}

	slog.Info("All migrations completed successfully")
	return nil
}

func exec(query string) func(ctx context.Context, pool *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		_, err := pool.Exec(ctx, query)
		return err
	}
}

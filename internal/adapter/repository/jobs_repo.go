package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-tailor/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// JobsRepo persists generation jobs and their rendered artifacts in
// Postgres.
type JobsRepo struct {
	pool *pgxpool.Pool
}

func NewJobsRepo(pool *pgxpool.Pool) *JobsRepo {
	return &JobsRepo{pool: pool}
}

// Save upserts the job row and, when a document or PDF is present, the
// corresponding resumes row.
func (r *JobsRepo) Save(ctx context.Context, j *domain.ResumeJob) error {
	metaB, _ := json.Marshal(j.Metadata)
	overridesB, _ := json.Marshal(j.Overrides)
	j.UpdatedAt = time.Now()

	_, err := r.pool.Exec(ctx, `INSERT INTO resume_jobs (id, user_id, job_description, status, error, metadata, overrides, resume_id, language, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, error = EXCLUDED.error, metadata = EXCLUDED.metadata, resume_id = EXCLUDED.resume_id, updated_at = EXCLUDED.updated_at`,
		j.ID, j.UserID, j.JobDescription, string(j.Status), j.Error, metaB, overridesB, j.ResumeID, j.Language, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}

	if j.Document == nil && j.PDF == nil {
		return nil
	}

	if j.ResumeID == nil {
		id := uuid.New()
		j.ResumeID = &id
	}
	docB, _ := json.Marshal(j.Document)
	title := documentTitle(j.Document)

	_, err = r.pool.Exec(ctx, `INSERT INTO resumes (id, user_id, title, document, pdf, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, document = EXCLUDED.document, pdf = EXCLUDED.pdf, updated_at = EXCLUDED.updated_at`,
		*j.ResumeID, j.UserID, title, docB, j.PDF, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save resume: %w", err)
	}
	return nil
}

// Get loads a job together with its document and PDF, if any.
func (r *JobsRepo) Get(ctx context.Context, id uuid.UUID) (*domain.ResumeJob, error) {
	j := &domain.ResumeJob{}
	var status string
	var metaB, overridesB []byte
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, job_description, status, error, metadata, overrides, resume_id, language, created_at, updated_at
		FROM resume_jobs WHERE id = $1`, id).
		Scan(&j.ID, &j.UserID, &j.JobDescription, &status, &j.Error, &metaB, &overridesB, &j.ResumeID, &j.Language, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	j.Status = domain.JobStatus(status)
	_ = json.Unmarshal(metaB, &j.Metadata)
	_ = json.Unmarshal(overridesB, &j.Overrides)

	if j.ResumeID != nil {
		var docB []byte
		err := r.pool.QueryRow(ctx, `SELECT document, pdf FROM resumes WHERE id = $1`, *j.ResumeID).
			Scan(&docB, &j.PDF)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("load resume: %w", err)
		}
		_ = json.Unmarshal(docB, &j.Document)
	}
	return j, nil
}

// documentTitle picks a display title for the resumes row: the person's
// name when the document has one, else a generic fallback.
func documentTitle(doc map[string]interface{}) string {
	if doc != nil {
		if meta, ok := doc["meta"].(map[string]interface{}); ok {
			if name, ok := meta["name"].(string); ok && name != "" {
				return name
			}
		}
	}
	return "Resume"
}

package usecase

import (
	"context"
	"log/slog"
	"time"

	"resume-tailor/internal/domain"

	"github.com/google/uuid"
)

// Renderer turns the rendered HTML into a PDF.
type Renderer interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

// JobsRepo persists generation jobs.
type JobsRepo interface {
	Save(ctx context.Context, j *domain.ResumeJob) error
	Get(ctx context.Context, id uuid.UUID) (*domain.ResumeJob, error)
}

// ProfileSource supplies the stored profile material for a user.
type ProfileSource interface {
	AggregateForUser(ctx context.Context, userID uuid.UUID) (map[string]interface{}, error)
}

// Processor drives a generation job from pending to a terminal status.
// Renderer and Enhancer are optional: without an enhancer the document is
// composed deterministically from the profile, without a renderer the job
// completes with HTML only.
type Processor struct {
	renderer Renderer
	jobs     JobsRepo
	profiles ProfileSource
	enhancer Enhancer
	tplDir   string
	logger   *slog.Logger
}

func NewProcessor(jobs JobsRepo, profiles ProfileSource, enhancer Enhancer, renderer Renderer, tplDir string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		renderer: renderer,
		jobs:     jobs,
		profiles: profiles,
		enhancer: enhancer,
		tplDir:   tplDir,
		logger:   logger,
	}
}

// Process runs the pipeline for one job. Failures are recorded on the job
// (status error plus message) before being returned, so pollers always
// observe a terminal status.
func (p *Processor) Process(ctx context.Context, job *domain.ResumeJob) error {
	job.Status = domain.JobProcessing
	if err := p.jobs.Save(ctx, job); err != nil {
		return err
	}
	log := p.logger.With("job_id", job.ID.String())

	aggregated, err := p.profiles.AggregateForUser(ctx, job.UserID)
	if err != nil {
		// a user with no stored profile can still generate from overrides
		log.Warn("no profile data, generating from overrides only", "error", err)
		aggregated = nil
	}
	overrides := NewOverridesFromMap(job.Overrides)

	doc, err := p.buildDocument(ctx, job, aggregated, overrides)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	if err := validateDocument(doc, p.tplDir); err != nil {
		return p.fail(ctx, job, err)
	}
	job.Document = doc

	html, err := renderHTML(doc, p.tplDir)
	if err != nil {
		return p.fail(ctx, job, err)
	}

	if p.renderer != nil {
		pdf, err := p.renderer.RenderHTMLToPDF(ctx, html)
		if err != nil {
			return p.fail(ctx, job, err)
		}
		job.PDF = pdf
	}

	job.Status = domain.JobComplete
	job.Error = ""
	if job.ResumeID == nil {
		id := uuid.New()
		job.ResumeID = &id
	}
	job.UpdatedAt = time.Now()
	if err := p.jobs.Save(ctx, job); err != nil {
		return err
	}
	log.Info("job complete", "resume_id", job.ResumeID.String())
	return nil
}

func (p *Processor) buildDocument(ctx context.Context, job *domain.ResumeJob, aggregated map[string]interface{}, overrides *Overrides) (map[string]interface{}, error) {
	if p.enhancer == nil {
		return composeDocument(aggregated, overrides), nil
	}
	payload := buildPayload(job, aggregated, overrides)
	doc, err := p.enhancer.EnhanceResume(ctx, payload)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// fail marks the job terminal with the failure's message and persists it.
func (p *Processor) fail(ctx context.Context, job *domain.ResumeJob, cause error) error {
	p.logger.Error("job failed", "job_id", job.ID.String(), "error", cause)
	job.Status = domain.JobError
	job.Error = cause.Error()
	job.UpdatedAt = time.Now()
	if err := p.jobs.Save(ctx, job); err != nil {
		p.logger.Error("unable to persist failed job", "job_id", job.ID.String(), "error", err)
	}
	return cause
}

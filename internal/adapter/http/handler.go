// Package http exposes the REST API. Error bodies carry a "detail" key,
// which is what the bundled client's gateway parses for its error
// messages.
package http

import (
	"context"
	"log/slog"
	"time"

	"resume-tailor/internal/adapter/repository"
	"resume-tailor/internal/auth"
	"resume-tailor/internal/domain"
	"resume-tailor/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const refreshCookie = "refresh_token"

// ProfileStore is the account access the handler needs beyond auth.
type ProfileStore interface {
	UserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, profile map[string]interface{}) error
}

type Handler struct {
	auth      *auth.Service
	processor *usecase.Processor
	jobs      usecase.JobsRepo
	profiles  ProfileStore
	logger    *slog.Logger

	refreshTTL time.Duration
}

func NewHandler(a *auth.Service, p *usecase.Processor, jobs usecase.JobsRepo, profiles ProfileStore, refreshTTL time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Handler{auth: a, processor: p, jobs: jobs, profiles: profiles, refreshTTL: refreshTTL, logger: logger}
}

// Register mounts all routes under /api/v1.
func (h *Handler) Register(app *fiber.App) {
	v1 := app.Group("/api/v1")

	v1.Post("/auth/login", h.Login)
	v1.Post("/auth/refresh", h.Refresh)
	v1.Post("/auth/logout", h.Logout)

	authed := v1.Group("", h.RequireAuth)
	authed.Get("/profile", h.GetProfile)
	authed.Put("/profile", h.PutProfile)
	authed.Post("/resumes", h.Generate)
	authed.Get("/resumes/:id", h.Status)
	authed.Get("/resumes/:id/download", h.Download)
}

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"detail": msg})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "invalid payload")
	}
	tokens, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return detail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	h.setRefreshCookie(c, tokens.RefreshToken)
	return c.JSON(tokenResp{AccessToken: tokens.AccessToken, TokenType: "bearer", ExpiresIn: tokens.ExpiresIn})
}

// Refresh rotates the refresh cookie and issues a fresh access token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	tokens, err := h.auth.Refresh(c.Context(), c.Cookies(refreshCookie))
	if err != nil {
		h.clearRefreshCookie(c)
		return detail(c, fiber.StatusUnauthorized, "Invalid refresh token")
	}
	h.setRefreshCookie(c, tokens.RefreshToken)
	return c.JSON(tokenResp{AccessToken: tokens.AccessToken, TokenType: "bearer", ExpiresIn: tokens.ExpiresIn})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	h.auth.Logout(c.Context(), c.Cookies(refreshCookie), bearerToken(c))
	h.clearRefreshCookie(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// RequireAuth resolves the bearer token and stashes the user id in
// locals for downstream handlers.
func (h *Handler) RequireAuth(c *fiber.Ctx) error {
	uid, err := h.auth.Authenticate(bearerToken(c))
	if err != nil {
		return detail(c, fiber.StatusUnauthorized, "Not authenticated")
	}
	c.Locals("user_id", uid)
	return c.Next()
}

func bearerToken(c *fiber.Ctx) string {
	const prefix = "Bearer "
	hdr := c.Get(fiber.HeaderAuthorization)
	if len(hdr) > len(prefix) && hdr[:len(prefix)] == prefix {
		return hdr[len(prefix):]
	}
	return ""
}

func userID(c *fiber.Ctx) uuid.UUID {
	uid, _ := c.Locals("user_id").(uuid.UUID)
	return uid
}

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	u, err := h.profiles.UserByID(c.Context(), userID(c))
	if err != nil {
		return detail(c, fiber.StatusNotFound, "Profile not found")
	}
	if u.Profile == nil {
		return c.JSON(fiber.Map{})
	}
	return c.JSON(u.Profile)
}

func (h *Handler) PutProfile(c *fiber.Ctx) error {
	var profile map[string]interface{}
	if err := c.BodyParser(&profile); err != nil {
		return detail(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.profiles.UpdateProfile(c.Context(), userID(c), profile); err != nil {
		h.logger.Error("update profile", "error", err)
		return detail(c, fiber.StatusInternalServerError, "unable to store profile")
	}
	return c.JSON(profile)
}

type generateReq struct {
	JobDescription string                 `json:"job_description"`
	Overrides      map[string]interface{} `json:"overrides,omitempty"`
	Language       string                 `json:"language,omitempty"`
}

// Generate accepts a generation request, persists the job and hands it
// to the background processor. The response carries the id clients poll.
func (h *Handler) Generate(c *fiber.Ctx) error {
	var req generateReq
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "invalid payload")
	}

	job := &domain.ResumeJob{
		ID:             uuid.New(),
		UserID:         userID(c),
		JobDescription: req.JobDescription,
		Status:         domain.JobPending,
		Metadata:       map[string]interface{}{},
		Overrides:      req.Overrides,
		Language:       req.Language,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := h.jobs.Save(c.Context(), job); err != nil {
		h.logger.Error("save job", "job_id", job.ID.String(), "error", err)
		return detail(c, fiber.StatusInternalServerError, "unable to store job")
	}

	go func(j *domain.ResumeJob) {
		if err := h.processor.Process(context.Background(), j); err != nil {
			h.logger.Error("job failed", "job_id", j.ID.String(), "error", err)
		}
	}(job)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"resume_id": job.ID.String(),
		"status":    string(domain.JobProcessing),
	})
}

// Status reports the job's progress as a flat document. Pending jobs
// report processing so clients see a single in-flight state.
func (h *Handler) Status(c *fiber.Ctx) error {
	job, err := h.loadOwnJob(c)
	if err != nil {
		return detail(c, fiber.StatusNotFound, "Resume not found")
	}

	status := job.Status
	if status == domain.JobPending {
		status = domain.JobProcessing
	}
	resp := fiber.Map{
		"resume_id": job.ID.String(),
		"status":    string(status),
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	return c.JSON(resp)
}

func (h *Handler) Download(c *fiber.Ctx) error {
	job, err := h.loadOwnJob(c)
	if err != nil {
		return detail(c, fiber.StatusNotFound, "Resume not found")
	}
	if job.Status != domain.JobComplete {
		return detail(c, fiber.StatusConflict, "Resume is not ready")
	}
	if len(job.PDF) == 0 {
		return detail(c, fiber.StatusNotFound, "No PDF was rendered for this resume")
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="resume.pdf"`)
	return c.Send(job.PDF)
}

// loadOwnJob parses the path id and enforces ownership. Another user's
// job is indistinguishable from a missing one.
func (h *Handler) loadOwnJob(c *fiber.Ctx) (*domain.ResumeJob, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, repository.ErrNotFound
	}
	job, err := h.jobs.Get(c.Context(), id)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID(c) {
		return nil, repository.ErrNotFound
	}
	return job, nil
}

func (h *Handler) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/api/v1/auth",
		Expires:  time.Now().Add(h.refreshTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *Handler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/api/v1/auth",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

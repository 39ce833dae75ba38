package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/repositories"
)

type JobHandler struct {
	jobRepo repositories.JobRepository
	log     *zap.Logger
}

func NewJobHandler(jobRepo repositories.JobRepository, log *zap.Logger) *JobHandler {
	return &JobHandler{
		jobRepo: jobRepo,
		log:     log,
	}
}

// HandleCreate handles POST /jobs
func (h *JobHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.JobRequest
	if err := c.BodyParser(&req); err != nil {
		return validationFailure(c, "body", "invalid request payload")
	}

	if strings.TrimSpace(req.Title) == "" {
		return validationFailure(c, "title", "is required")
	}

	now := time.Now()
	job := &models.Job{
		Title:        strings.TrimSpace(req.Title),
		Company:      strings.TrimSpace(req.Company),
		Description:  req.Description,
		Requirements: req.Requirements,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.jobRepo.Create(job); err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(job)
}

// HandleList handles GET /jobs
func (h *JobHandler) HandleList(c *fiber.Ctx) error {
	jobs, err := h.jobRepo.FindAll()
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(jobs)
}

// HandleGet handles GET /jobs/:id
func (h *JobHandler) HandleGet(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return validationFailure(c, "id", "invalid job ID format")
	}

	job, err := h.jobRepo.FindByID(id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return notFound(c, "job", id.String())
		}
		return writeError(c, h.log, err)
	}

	return c.JSON(job)
}

// HandleUpdate handles PUT /jobs/:id
func (h *JobHandler) HandleUpdate(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return validationFailure(c, "id", "invalid job ID format")
	}

	var req models.JobRequest
	if err := c.BodyParser(&req); err != nil {
		return validationFailure(c, "body", "invalid request payload")
	}
	if strings.TrimSpace(req.Title) == "" {
		return validationFailure(c, "title", "is required")
	}

	job := &models.Job{
		ID:           id,
		Title:        strings.TrimSpace(req.Title),
		Company:      strings.TrimSpace(req.Company),
		Description:  req.Description,
		Requirements: req.Requirements,
		UpdatedAt:    time.Now(),
	}
	if err := h.jobRepo.Update(job); err != nil {
		if repositories.IsNotFound(err) {
			return notFound(c, "job", id.String())
		}
		return writeError(c, h.log, err)
	}

	updated, err := h.jobRepo.FindByID(id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(updated)
}

// HandleDelete handles DELETE /jobs/:id
func (h *JobHandler) HandleDelete(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return validationFailure(c, "id", "invalid job ID format")
	}

	if err := h.jobRepo.Delete(id); err != nil {
		if repositories.IsNotFound(err) {
			return notFound(c, "job", id.String())
		}
		return writeError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"message": "Job deleted successfully",
	})
}

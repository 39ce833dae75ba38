package handlers

import (
	"fmt"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/repositories"
	"alfredoptarigan/ai-interviewer/internal/services"
)

type CandidateHandler struct {
	candidateRepo  repositories.CandidateRepository
	storageService services.StorageService
	maxFileSize    int64
	log            *zap.Logger
}

func NewCandidateHandler(
	candidateRepo repositories.CandidateRepository,
	storageService services.StorageService,
	maxFileSize int64,
	log *zap.Logger,
) *CandidateHandler {
	return &CandidateHandler{
		candidateRepo:  candidateRepo,
		storageService: storageService,
		maxFileSize:    maxFileSize,
		log:            log,
	}
}

// HandleCreate handles POST /candidates. A known email returns the existing candidate.
func (h *CandidateHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.CandidateRequest
	if err := c.BodyParser(&req); err != nil {
		return validationFailure(c, "body", "invalid request payload")
	}

	var fields services.FieldErrors
	if strings.TrimSpace(req.FirstName) == "" {
		fields.Add("firstName", "is required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		fields.Add("email", "is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields.Add("email", "must be a valid email address")
	}
	if len(fields) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   string(services.KindValidation),
			Message: "invalid request: " + fields.Error(),
			Fields:  fields,
		})
	}

	existing, err := h.candidateRepo.FindByEmail(email)
	if err == nil {
		return c.JSON(existing)
	}
	if !repositories.IsNotFound(err) {
		return writeError(c, h.log, err)
	}

	now := time.Now()
	candidate := &models.Candidate{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.candidateRepo.Create(candidate); err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(candidate)
}

// HandleGet handles GET /candidates/:id
func (h *CandidateHandler) HandleGet(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return validationFailure(c, "id", "invalid candidate ID format")
	}

	candidate, err := h.candidateRepo.FindByID(id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return notFound(c, "candidate", id.String())
		}
		return writeError(c, h.log, err)
	}

	return c.JSON(candidate)
}

// HandleDelete handles DELETE /candidates/:id
func (h *CandidateHandler) HandleDelete(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return validationFailure(c, "id", "invalid candidate ID format")
	}

	if err := h.candidateRepo.Delete(id); err != nil {
		if repositories.IsNotFound(err) {
			return notFound(c, "candidate", id.String())
		}
		return writeError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"message": "Candidate deleted successfully",
	})
}

// HandleUploadResume handles POST /candidates/:id/resume
func (h *CandidateHandler) HandleUploadResume(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return validationFailure(c, "id", "invalid candidate ID format")
	}

	file, err := c.FormFile("resume")
	if err != nil {
		return validationFailure(c, "resume", "a PDF file is required in the 'resume' field")
	}

	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		return validationFailure(c, "resume", "only PDF files are accepted")
	}

	if file.Size > h.maxFileSize {
		return validationFailure(c, "resume", fmt.Sprintf("file too large, max size: %d bytes", h.maxFileSize))
	}

	if _, err := h.candidateRepo.FindByID(id); err != nil {
		if repositories.IsNotFound(err) {
			return notFound(c, "candidate", id.String())
		}
		return writeError(c, h.log, err)
	}

	stored, err := h.storageService.SaveResume(file)
	if err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.candidateRepo.UpdateResume(id, stored.Filename, file.Filename, stored.Path); err != nil {
		// Cleanup uploaded file if the record update fails
		if delErr := h.storageService.DeleteFile(stored.Key); delErr != nil {
			h.log.Warn("⚠️ Failed to clean up resume file", zap.String("key", stored.Key), zap.Error(delErr))
		}
		if repositories.IsNotFound(err) {
			return notFound(c, "candidate", id.String())
		}
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.UploadResponse{
		ID:           id.String(),
		Filename:     stored.Filename,
		OriginalName: file.Filename,
		FileType:     "resume",
	})
}

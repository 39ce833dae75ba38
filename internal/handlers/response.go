package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/services"
)

var statusByKind = map[services.ErrorKind]int{
	services.KindValidation:          fiber.StatusBadRequest,
	services.KindNotFound:            fiber.StatusNotFound,
	services.KindConflict:            fiber.StatusConflict,
	services.KindUpstreamUnavailable: fiber.StatusServiceUnavailable,
	services.KindInternal:            fiber.StatusInternalServerError,
}

// writeError renders a service error. Internal causes are logged, never returned.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		svcErr = &services.Error{Kind: services.KindInternal, Message: "internal server error", Err: err}
	}

	status, ok := statusByKind[svcErr.Kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}

	message := svcErr.Message
	switch svcErr.Kind {
	case services.KindInternal:
		log.Error("❌ Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		message = "internal server error"
	case services.KindUpstreamUnavailable:
		log.Warn("⚠️ Upstream unavailable",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(models.ErrorResponse{
		Error:      string(svcErr.Kind),
		Message:    message,
		Fields:     svcErr.Fields,
		ResourceID: svcErr.ResourceID,
	})
}

func validationFailure(c *fiber.Ctx, field, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error:   string(services.KindValidation),
		Message: "invalid request: " + field + ": " + message,
		Fields:  []models.FieldError{{Field: field, Message: message}},
	})
}

func notFound(c *fiber.Ctx, resource, id string) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error:      string(services.KindNotFound),
		Message:    resource + " not found",
		ResourceID: id,
	})
}

// parseID reads a uuid path parameter.
func parseID(c *fiber.Ctx, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

package handlers

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/services"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

type InterviewHandler struct {
	interviewService services.InterviewService
	indexer          services.TranscriptIndexer
	log              *zap.Logger
}

// NewInterviewHandler builds the interview endpoints. indexer may be nil, in which case
// transcript search answers 503.
func NewInterviewHandler(
	interviewService services.InterviewService,
	indexer services.TranscriptIndexer,
	log *zap.Logger,
) *InterviewHandler {
	return &InterviewHandler{
		interviewService: interviewService,
		indexer:          indexer,
		log:              log,
	}
}

// HandleCreate handles POST /interviews
func (h *InterviewHandler) HandleCreate(c *fiber.Ctx) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return validationFailure(c, "body", "request body must be a JSON object")
	}

	input := decodeCreateInterview(raw)
	interview, conversation, err := h.interviewService.CreateInterview(c.UserContext(), input)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.CreateInterviewResponse{
		Message:      "Interview created successfully",
		Interview:    interview,
		MessageCount: len(conversation.Messages),
	})
}

// HandleGet handles GET /interviews/:id
func (h *InterviewHandler) HandleGet(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return validationFailure(c, "id", "invalid interview ID format")
	}

	interview, conversation, err := h.interviewService.GetInterview(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(models.InterviewDetailResponse{
		Interview:    interview,
		Conversation: conversation,
	})
}

// HandleGetConfig handles GET /interviews/:id/config
func (h *InterviewHandler) HandleGetConfig(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return validationFailure(c, "id", "invalid interview ID format")
	}

	cfg, err := h.interviewService.GetConfig(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(cfg)
}

// HandleReply handles POST /interviews/:id/reply
func (h *InterviewHandler) HandleReply(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return validationFailure(c, "id", "invalid interview ID format")
	}

	var req models.ReplyRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return validationFailure(c, "message", "must be a string")
	}

	result, err := h.interviewService.Reply(c.UserContext(), id, req.Message)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(models.ReplyResponse{
		Response: models.ReplyMessage{
			Role: models.RoleAssistant,
			Text: result.Reply,
		},
		Status:   result.Status,
		IsEnded:  result.IsEnded,
		Progress: result.Progress,
	})
}

// HandleEnd handles POST /interviews/:id/end
func (h *InterviewHandler) HandleEnd(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return validationFailure(c, "id", "invalid interview ID format")
	}

	interview, err := h.interviewService.EndInterview(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"message":   "Interview ended successfully",
		"interview": interview,
	})
}

// HandleUploadVideo handles POST /interviews/:id/video
func (h *InterviewHandler) HandleUploadVideo(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return validationFailure(c, "id", "invalid interview ID format")
	}

	file, err := c.FormFile("video")
	if err != nil {
		return validationFailure(c, "video", "a video file is required in the 'video' field")
	}

	interview, err := h.interviewService.AttachVideo(c.UserContext(), id, file)
	if err != nil {
		return writeError(c, h.log, err)
	}

	videoURL := ""
	if interview.VideoURL != nil {
		videoURL = *interview.VideoURL
	}
	return c.JSON(models.VideoUploadResponse{
		Message:   "Video uploaded successfully",
		VideoURL:  videoURL,
		Interview: interview,
	})
}

// HandleSearch handles GET /interviews/search?q=&limit=
func (h *InterviewHandler) HandleSearch(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return validationFailure(c, "q", "is required")
	}

	limit := defaultSearchLimit
	if rawLimit := c.Query("limit"); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 1 || n > maxSearchLimit {
			return validationFailure(c, "limit", "must be between 1 and 50")
		}
		limit = n
	}

	if h.indexer == nil {
		return writeError(c, h.log, &services.Error{
			Kind:    services.KindUpstreamUnavailable,
			Message: "transcript search is not configured",
		})
	}

	results, err := h.indexer.Search(c.UserContext(), query, limit)
	if err != nil {
		return writeError(c, h.log, &services.Error{
			Kind:    services.KindUpstreamUnavailable,
			Message: "transcript search is temporarily unavailable",
			Err:     err,
		})
	}

	return c.JSON(models.SearchResponse{
		Query:   query,
		Results: results,
	})
}

// decodeCreateInterview reads the creation payload field by field so that every wrongly typed
// value is reported, not just the first one the JSON decoder trips over.
func decodeCreateInterview(raw map[string]json.RawMessage) services.CreateInterviewInput {
	var in services.CreateInterviewInput
	errs := &in.ShapeErrors

	in.JobID = decodeUUID(raw, "jobId", errs)
	in.CandidateID = decodeUUID(raw, "candidateId", errs)
	in.Config = services.InterviewConfigInput{
		MaxMainQuestions:     decodeField[int](raw, "maxMainQuestions", "must be an integer", errs),
		MaxFollowUpQuestions: decodeField[int](raw, "maxFollowUpQuestions", "must be an integer", errs),
		MaxTotalQuestions:    decodeField[int](raw, "maxTotalQuestions", "must be an integer", errs),
		ClosingStatement:     decodeField[string](raw, "closingStatement", "must be a string", errs),
		CustomInstructions:   decodeField[string](raw, "customInstructions", "must be a string", errs),
	}
	if types := decodeField[[]string](raw, "questionTypes", "must be an array of strings", errs); types != nil {
		in.Config.QuestionTypes = *types
		if in.Config.QuestionTypes == nil {
			in.Config.QuestionTypes = []string{}
		}
	}

	return in
}

// decodeField returns nil when the field is absent or null.
func decodeField[T any](raw map[string]json.RawMessage, field, message string, errs *services.FieldErrors) *T {
	value, ok := raw[field]
	if !ok || string(value) == "null" {
		return nil
	}

	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		errs.Add(field, message)
		return nil
	}
	return &out
}

func decodeUUID(raw map[string]json.RawMessage, field string, errs *services.FieldErrors) uuid.UUID {
	s := decodeField[string](raw, field, "must be a string", errs)
	if s == nil {
		return uuid.Nil
	}

	id, err := uuid.Parse(*s)
	if err != nil {
		errs.Add(field, "must be a valid UUID")
		return uuid.Nil
	}
	return id
}

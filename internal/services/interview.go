package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/repositories"
)

const (
	maxReplyLength = 1000

	resumeFallbackText = "Resume not available or could not be parsed."
)

type InterviewService interface {
	CreateInterview(ctx context.Context, in CreateInterviewInput) (*models.Interview, *models.Conversation, error)
	GetInterview(ctx context.Context, id uuid.UUID) (*models.Interview, *models.Conversation, error)
	GetConfig(ctx context.Context, id uuid.UUID) (models.InterviewConfig, error)
	Reply(ctx context.Context, interviewID uuid.UUID, message string) (*ReplyResult, error)
	EndInterview(ctx context.Context, id uuid.UUID) (*models.Interview, error)
	AttachVideo(ctx context.Context, id uuid.UUID, file *multipart.FileHeader) (*models.Interview, error)
}

// TranscriptEnqueuer receives interviews that just completed.
type TranscriptEnqueuer interface {
	Enqueue(interviewID uuid.UUID)
}

type CreateInterviewInput struct {
	JobID       uuid.UUID
	CandidateID uuid.UUID
	Config      InterviewConfigInput
	// ShapeErrors are request fields the transport layer could not decode. They are reported
	// together with the configuration errors.
	ShapeErrors FieldErrors
}

type ReplyResult struct {
	Reply     string
	Status    models.InterviewStatus
	IsEnded   bool
	Progress  models.ProgressState
	EndReason EndReason
}

// InterviewDependencies wires InterviewService. Indexer and Metrics may be nil.
type InterviewDependencies struct {
	Interviews    repositories.InterviewRepository
	Conversations repositories.ConversationRepository
	Jobs          repositories.JobRepository
	Candidates    repositories.CandidateRepository
	Gateway       LLMGateway
	Retry         RetryPolicy
	LLMTimeout    time.Duration
	Locker        ConversationLocker
	ResumeParser  ResumeParserService
	Storage       StorageService
	MaxVideoSize  int64
	Indexer       TranscriptEnqueuer
	Metrics       *Metrics
	Logger        *zap.Logger
}

type interviewService struct {
	interviews    repositories.InterviewRepository
	conversations repositories.ConversationRepository
	jobs          repositories.JobRepository
	candidates    repositories.CandidateRepository
	gateway       LLMGateway
	retry         RetryPolicy
	llmTimeout    time.Duration
	locker        ConversationLocker
	resumeParser  ResumeParserService
	storage       StorageService
	maxVideoSize  int64
	indexer       TranscriptEnqueuer
	metrics       *Metrics
	promptBuilder *PromptBuilder
	log           *zap.Logger
	now           func() time.Time
}

func NewInterviewService(deps InterviewDependencies) InterviewService {
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.LLMTimeout <= 0 {
		deps.LLMTimeout = 45 * time.Second
	}

	return &interviewService{
		interviews:    deps.Interviews,
		conversations: deps.Conversations,
		jobs:          deps.Jobs,
		candidates:    deps.Candidates,
		gateway:       deps.Gateway,
		retry:         deps.Retry,
		llmTimeout:    deps.LLMTimeout,
		locker:        deps.Locker,
		resumeParser:  deps.ResumeParser,
		storage:       deps.Storage,
		maxVideoSize:  deps.MaxVideoSize,
		indexer:       deps.Indexer,
		metrics:       deps.Metrics,
		promptBuilder: NewPromptBuilder(),
		log:           deps.Logger,
		now:           time.Now,
	}
}

// CreateInterview resolves the configuration, seeds the transcript with the system instruction
// and the greeting, and stores interview, conversation and messages together.
func (s *interviewService) CreateInterview(ctx context.Context, in CreateInterviewInput) (*models.Interview, *models.Conversation, error) {
	fields := append(FieldErrors{}, in.ShapeErrors...)
	if in.JobID == uuid.Nil && !fields.has("jobId") {
		fields.Add("jobId", "is required")
	}
	if in.CandidateID == uuid.Nil && !fields.has("candidateId") {
		fields.Add("candidateId", "is required")
	}
	cfg, cfgErrs := ResolveInterviewConfig(in.Config)
	for _, fe := range cfgErrs {
		if !fields.has(fe.Field) {
			fields = append(fields, fe)
		}
	}
	if len(fields) > 0 {
		return nil, nil, validationError(fields)
	}

	job, err := s.jobs.FindByID(in.JobID)
	if err != nil {
		return nil, nil, s.lookupError("job", in.JobID, err)
	}
	candidate, err := s.candidates.FindByID(in.CandidateID)
	if err != nil {
		return nil, nil, s.lookupError("candidate", in.CandidateID, err)
	}

	release, err := s.acquire(ctx, pairLockKey(in.JobID, in.CandidateID))
	if err != nil {
		return nil, nil, err
	}
	defer release()

	existing, err := s.interviews.FindActiveByPair(in.JobID, in.CandidateID)
	switch {
	case err == nil:
		return nil, nil, conflictError("an active interview already exists for this job and candidate", existing.ID.String())
	case !repositories.IsNotFound(err):
		return nil, nil, internalError("failed to check existing interviews", err)
	}

	systemInstruction := s.promptBuilder.BuildSystemInstruction(
		job,
		candidate,
		CleanJobDescription(job.Description),
		s.resumeText(candidate),
		cfg,
	)
	greeting := s.promptBuilder.BuildGreeting(job, candidate)

	now := s.now()
	interview := &models.Interview{
		ID:          uuid.New(),
		JobID:       job.ID,
		CandidateID: candidate.ID,
		Status:      models.InterviewPending,
		Config:      cfg,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	conversationID := uuid.New()
	snapshot := cfg
	conversation := &models.Conversation{
		ID:       conversationID,
		Config:   &snapshot,
		Progress: InitialProgress(),
		Messages: []models.Message{
			{ID: uuid.New(), ConversationID: conversationID, Sequence: 0, Role: models.RoleSystem, Text: systemInstruction, CreatedAt: now},
			{ID: uuid.New(), ConversationID: conversationID, Sequence: 1, Role: models.RoleAssistant, Text: greeting, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.interviews.CreateWithConversation(interview, conversation); err != nil {
		return nil, nil, internalError("failed to create interview", err)
	}

	s.metrics.InterviewsCreated.Inc()
	s.log.Info("🎤 Interview created",
		zap.String("interview_id", interview.ID.String()),
		zap.String("conversation_id", conversation.ID.String()),
		zap.Int("max_main_questions", cfg.MaxMainQuestions),
	)

	return interview, conversation, nil
}

func (s *interviewService) GetInterview(ctx context.Context, id uuid.UUID) (*models.Interview, *models.Conversation, error) {
	interview, err := s.interviews.FindByID(id)
	if err != nil {
		return nil, nil, s.lookupError("interview", id, err)
	}
	if interview.ConversationID == nil {
		return interview, nil, nil
	}

	conversation, err := s.conversations.FindByID(*interview.ConversationID)
	if err != nil {
		return nil, nil, s.lookupError("conversation", *interview.ConversationID, err)
	}
	return interview, conversation, nil
}

// GetConfig returns the configuration the conversation runs on.
func (s *interviewService) GetConfig(ctx context.Context, id uuid.UUID) (models.InterviewConfig, error) {
	interview, conversation, err := s.GetInterview(ctx, id)
	if err != nil {
		return models.InterviewConfig{}, err
	}
	if conversation != nil && conversation.Config != nil {
		return *conversation.Config, nil
	}
	return interview.Config, nil
}

// Reply runs one turn: the candidate message and the interviewer's answer are persisted
// together, or not at all.
func (s *interviewService) Reply(ctx context.Context, interviewID uuid.UUID, message string) (*ReplyResult, error) {
	text := strings.TrimSpace(message)
	var fields FieldErrors
	switch {
	case text == "":
		fields.Add("message", "is required")
	case utf8.RuneCountInString(text) > maxReplyLength:
		fields.Add("message", "must be at most 1000 characters")
	}
	if len(fields) > 0 {
		return nil, validationError(fields)
	}

	release, err := s.acquire(ctx, conversationLockKey(interviewID))
	if err != nil {
		return nil, err
	}
	defer release()

	interview, conversation, err := s.loadActive(interviewID)
	if err != nil {
		return nil, err
	}

	cfg := s.conversationConfig(interview, conversation)
	log := s.log.With(
		zap.String("interview_id", interview.ID.String()),
		zap.String("conversation_id", conversation.ID.String()),
	)

	nextSeq := len(conversation.Messages)
	if n := len(conversation.Messages); n > 0 {
		nextSeq = conversation.Messages[n-1].Sequence + 1
	}
	candidateMessage := models.Message{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		Sequence:       nextSeq,
		Role:           models.RoleUser,
		Text:           text,
		CreatedAt:      s.now(),
	}

	forceEnd, reason := ShouldEnd(conversation.Progress, cfg)
	composed := s.promptBuilder.Compose(conversation.Progress, cfg, forceEnd)
	chat := s.buildChat(conversation.Messages, candidateMessage, composed)

	callCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	start := time.Now()
	reply, err := CompleteWithRetry(callCtx, s.gateway, chat, s.retry, log)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.LLMLatency.WithLabelValues(s.gateway.Name(), outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.Turns.WithLabelValues("llm_error").Inc()
		log.Error("❌ Interviewer reply failed, turn discarded", zap.Error(err))
		if IsRetryable(err) {
			return nil, &Error{
				Kind:    KindUpstreamUnavailable,
				Message: "the interviewer is temporarily unavailable, please try again",
				Err:     err,
			}
		}
		return nil, internalError("failed to generate interviewer reply", err)
	}

	progress := UpdateProgress(conversation.Progress, cfg, reply)

	isEnded := false
	switch {
	case forceEnd:
		isEnded = true
	case containsClosingStatement(reply, cfg.ClosingStatement):
		isEnded, reason = true, EndReasonClosingStatement
	case progress.InterviewPhase.Rank() >= models.PhaseConcluding.Rank():
		isEnded, reason = true, EndReasonConcluding
	}

	status := models.InterviewInProgress
	if isEnded {
		progress.InterviewPhase = models.PhaseCompleted
		status = models.InterviewCompleted
	}

	assistantMessage := models.Message{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		Sequence:       candidateMessage.Sequence + 1,
		Role:           models.RoleAssistant,
		Text:           reply,
		CreatedAt:      s.now(),
	}

	err = s.conversations.CommitTurn(&repositories.TurnCommit{
		ConversationID:  conversation.ID,
		InterviewID:     interview.ID,
		Messages:        []models.Message{candidateMessage, assistantMessage},
		Progress:        progress,
		IsEnded:         isEnded,
		InterviewStatus: status,
	})
	if err != nil {
		s.metrics.Turns.WithLabelValues("commit_error").Inc()
		if errors.Is(err, repositories.ErrConversationEnded) {
			return nil, conflictError("interview has already ended", interview.ID.String())
		}
		return nil, internalError("failed to save interview turn", err)
	}

	s.metrics.Turns.WithLabelValues("ok").Inc()
	if isEnded {
		s.metrics.Terminations.WithLabelValues(string(reason)).Inc()
		log.Info("🏁 Interview completed", zap.String("reason", string(reason)))
		s.enqueueIndexing(interview.ID)
	} else {
		log.Debug("💬 Turn committed",
			zap.Int("main_questions_asked", progress.MainQuestionsAsked),
			zap.Int("follow_up_questions_asked", progress.FollowUpQuestionsAsked),
			zap.String("phase", string(progress.InterviewPhase)),
		)
	}

	return &ReplyResult{
		Reply:     reply,
		Status:    status,
		IsEnded:   isEnded,
		Progress:  progress,
		EndReason: reason,
	}, nil
}

// EndInterview terminates an interview on request, without a closing turn.
func (s *interviewService) EndInterview(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	release, err := s.acquire(ctx, conversationLockKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	interview, conversation, err := s.loadActive(id)
	if err != nil {
		return nil, err
	}

	if err := s.conversations.End(conversation.ID, interview.ID); err != nil {
		if errors.Is(err, repositories.ErrConversationEnded) {
			return nil, conflictError("interview has already ended", interview.ID.String())
		}
		return nil, internalError("failed to end interview", err)
	}

	s.metrics.Terminations.WithLabelValues(string(EndReasonManual)).Inc()
	s.log.Info("🏁 Interview ended manually", zap.String("interview_id", interview.ID.String()))
	s.enqueueIndexing(interview.ID)

	updated, err := s.interviews.FindByID(id)
	if err != nil {
		return nil, internalError("failed to reload interview", err)
	}
	return updated, nil
}

// AttachVideo stores the interview recording and saves its reference URL.
func (s *interviewService) AttachVideo(ctx context.Context, id uuid.UUID, file *multipart.FileHeader) (*models.Interview, error) {
	var fields FieldErrors
	switch {
	case file == nil:
		fields.Add("video", "is required")
	case s.maxVideoSize > 0 && file.Size > s.maxVideoSize:
		fields.Add("video", "file too large")
	case !IsAllowedVideo(file):
		fields.Add("video", "unsupported video type, allowed: mp4, avi, mov, wmv, flv")
	}
	if len(fields) > 0 {
		return nil, validationError(fields)
	}

	if _, err := s.interviews.FindByID(id); err != nil {
		return nil, s.lookupError("interview", id, err)
	}

	stored, err := s.storage.SaveVideo(id, file)
	if err != nil {
		return nil, internalError("failed to store video", err)
	}

	if err := s.interviews.UpdateVideoURL(id, stored.URL); err != nil {
		if delErr := s.storage.DeleteFile(stored.Key); delErr != nil {
			s.log.Warn("⚠️ Failed to clean up video file", zap.String("key", stored.Key), zap.Error(delErr))
		}
		return nil, s.lookupError("interview", id, err)
	}

	s.log.Info("🎬 Interview video stored",
		zap.String("interview_id", id.String()),
		zap.String("key", stored.Key),
	)

	updated, err := s.interviews.FindByID(id)
	if err != nil {
		return nil, internalError("failed to reload interview", err)
	}
	return updated, nil
}

// loadActive returns an interview and its conversation, refusing ended ones.
func (s *interviewService) loadActive(id uuid.UUID) (*models.Interview, *models.Conversation, error) {
	interview, err := s.interviews.FindByID(id)
	if err != nil {
		return nil, nil, s.lookupError("interview", id, err)
	}
	if interview.ConversationID == nil {
		return nil, nil, notFoundError("conversation", id.String())
	}

	conversation, err := s.conversations.FindByID(*interview.ConversationID)
	if err != nil {
		return nil, nil, s.lookupError("conversation", *interview.ConversationID, err)
	}

	if conversation.IsEnded || interview.Status == models.InterviewCompleted {
		return nil, nil, conflictError("interview has already ended", interview.ID.String())
	}
	return interview, conversation, nil
}

func (s *interviewService) conversationConfig(interview *models.Interview, conversation *models.Conversation) models.InterviewConfig {
	if conversation.Config != nil {
		return *conversation.Config
	}

	s.metrics.ConfigFallbacks.Inc()
	s.log.Warn("⚠️ Conversation has no configuration snapshot, using defaults",
		zap.String("interview_id", interview.ID.String()),
		zap.String("conversation_id", conversation.ID.String()),
	)
	return DefaultInterviewConfig()
}

// buildChat turns the stored transcript plus the pending candidate message into the model
// request. The system instruction is refreshed with the composed state block.
func (s *interviewService) buildChat(history []models.Message, pending models.Message, composed string) []ChatMessage {
	chat := make([]ChatMessage, 0, len(history)+2)
	hasSystem := false
	for _, msg := range history {
		content := msg.Text
		if msg.Role == models.RoleSystem {
			content = s.promptBuilder.BuildTurnInstruction(msg.Text, composed)
			hasSystem = true
		}
		chat = append(chat, ChatMessage{Role: msg.Role, Content: content})
	}
	if !hasSystem {
		chat = append([]ChatMessage{{Role: models.RoleSystem, Content: composed}}, chat...)
	}
	return append(chat, ChatMessage{Role: pending.Role, Content: pending.Text})
}

func (s *interviewService) resumeText(candidate *models.Candidate) string {
	if candidate.ResumePath == "" || s.resumeParser == nil {
		return resumeFallbackText
	}

	resume, err := s.resumeParser.ExtractResume(candidate.ResumePath)
	if err != nil {
		s.log.Warn("⚠️ Failed to parse resume, continuing without it",
			zap.String("candidate_id", candidate.ID.String()),
			zap.Error(err),
		)
		return resumeFallbackText
	}
	return resume.Text
}

func (s *interviewService) acquire(ctx context.Context, key string) (func(), error) {
	release, err := s.locker.Acquire(ctx, key)
	if err == nil {
		return release, nil
	}
	if errors.Is(err, ErrLockNotAcquired) {
		return nil, conflictError("another request for this interview is in progress", "")
	}
	return nil, internalError("failed to acquire interview lock", err)
}

func (s *interviewService) lookupError(resource string, id uuid.UUID, err error) error {
	if repositories.IsNotFound(err) {
		return notFoundError(resource, id.String())
	}
	return internalError("failed to load "+resource, err)
}

func (s *interviewService) enqueueIndexing(id uuid.UUID) {
	if s.indexer != nil {
		s.indexer.Enqueue(id)
	}
}

func containsClosingStatement(reply, closingStatement string) bool {
	closing := strings.ToLower(strings.TrimSpace(closingStatement))
	if closing == "" {
		return false
	}
	return strings.Contains(strings.ToLower(reply), closing)
}

func conversationLockKey(interviewID uuid.UUID) string {
	return "interview:" + interviewID.String()
}

func pairLockKey(jobID, candidateID uuid.UUID) string {
	return "pair:" + jobID.String() + ":" + candidateID.String()
}

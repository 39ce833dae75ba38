package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/ai-interviewer/internal/config"
	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

type testEnv struct {
	db            *gorm.DB
	svc           *interviewService
	gateway       *scriptedGateway
	metrics       *Metrics
	interviews    repositories.InterviewRepository
	conversations repositories.ConversationRepository
	jobs          repositories.JobRepository
	candidates    repositories.CandidateRepository
	enqueued      *recordingEnqueuer
}

type recordingEnqueuer struct {
	ids []uuid.UUID
}

func (r *recordingEnqueuer) Enqueue(id uuid.UUID) {
	r.ids = append(r.ids, id)
}

func newTestEnv(t *testing.T, gateway *scriptedGateway) *testEnv {
	t.Helper()
	db := newTestDB(t)

	env := &testEnv{
		db:            db,
		gateway:       gateway,
		metrics:       NewMetrics(prometheus.NewRegistry()),
		interviews:    repositories.NewInterviewRepository(db),
		conversations: repositories.NewConversationRepository(db),
		jobs:          repositories.NewJobRepository(db),
		candidates:    repositories.NewCandidateRepository(db),
		enqueued:      &recordingEnqueuer{},
	}

	env.svc = NewInterviewService(InterviewDependencies{
		Interviews:    env.interviews,
		Conversations: env.conversations,
		Jobs:          env.jobs,
		Candidates:    env.candidates,
		Gateway:       gateway,
		Retry:         RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond},
		LLMTimeout:    5 * time.Second,
		Locker:        NewLocalLocker(5 * time.Second),
		ResumeParser:  NewResumeParserService(),
		Storage:       NewStorageService(t.TempDir(), "/uploads"),
		MaxVideoSize:  1 << 20,
		Indexer:       env.enqueued,
		Metrics:       env.metrics,
		Logger:        zap.NewNop(),
	}).(*interviewService)

	return env
}

func (e *testEnv) seedJobAndCandidate(t *testing.T) (*models.Job, *models.Candidate) {
	t.Helper()

	job := &models.Job{
		Title:        "Backend Engineer",
		Company:      "Acme",
		Description:  "<p>Build and run <b>payment</b> APIs.</p>",
		Requirements: []string{"Go", "PostgreSQL"},
	}
	require.NoError(t, e.jobs.Create(job))

	candidate := &models.Candidate{
		FirstName: "Sam",
		LastName:  "Rivera",
		Email:     fmt.Sprintf("sam+%s@example.com", uuid.NewString()[:8]),
	}
	require.NoError(t, e.candidates.Create(candidate))

	return job, candidate
}

// startInterview creates an interview with the given configuration input.
func (e *testEnv) startInterview(t *testing.T, cfg InterviewConfigInput) *models.Interview {
	t.Helper()
	job, candidate := e.seedJobAndCandidate(t)

	interview, _, err := e.svc.CreateInterview(t.Context(), CreateInterviewInput{
		JobID:       job.ID,
		CandidateID: candidate.ID,
		Config:      cfg,
	})
	require.NoError(t, err)
	return interview
}

func (e *testEnv) loadConversation(t *testing.T, interviewID uuid.UUID) (*models.Interview, *models.Conversation) {
	t.Helper()
	interview, err := e.interviews.FindByID(interviewID)
	require.NoError(t, err)
	require.NotNil(t, interview.ConversationID)

	conversation, err := e.conversations.FindByID(*interview.ConversationID)
	require.NoError(t, err)
	return interview, conversation
}

// setProgress overwrites the stored progress of an interview's conversation.
func (e *testEnv) setProgress(t *testing.T, interviewID uuid.UUID, progress models.ProgressState) {
	t.Helper()
	_, conversation := e.loadConversation(t, interviewID)

	err := e.db.Model(&models.Conversation{}).
		Where("id = ?", conversation.ID).
		Updates(map[string]interface{}{
			"progress_main_questions_asked":      progress.MainQuestionsAsked,
			"progress_follow_up_questions_asked": progress.FollowUpQuestionsAsked,
			"progress_current_question_type":     progress.CurrentQuestionType,
			"progress_interview_phase":           progress.InterviewPhase,
		}).Error
	require.NoError(t, err)
}

func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	require.Error(t, err)

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, kind, svcErr.Kind, svcErr.Error())
	return svcErr
}

func transcriptOf(conversation *models.Conversation) []string {
	lines := make([]string, 0, len(conversation.Messages))
	for _, msg := range conversation.Messages {
		lines = append(lines, fmt.Sprintf("%d %s %s", msg.Sequence, msg.Role, msg.Text))
	}
	return lines
}

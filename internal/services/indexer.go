package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/repositories"
)

// TranscriptIndexer embeds completed transcripts into the vector store in the background.
// It is never on the reply path: a failure only delays indexing until the next poll.
type TranscriptIndexer interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(interviewID uuid.UUID)
	IndexInterview(ctx context.Context, interviewID uuid.UUID) error
	Search(ctx context.Context, query string, limit int) ([]models.TranscriptMatch, error)
}

type IndexerConfig struct {
	Concurrency  int
	PollInterval time.Duration
	// RetryBackoff keeps the poller from re-queueing an interview that just failed.
	RetryBackoff time.Duration
	ChunkSize    int
	ChunkOverlap int
}

type transcriptIndexer struct {
	interviews    repositories.InterviewRepository
	conversations repositories.ConversationRepository
	embedder      Embedder
	store         TranscriptStore
	chunker       TextChunker
	metrics       *Metrics
	log           *zap.Logger
	config        IndexerConfig

	queue    chan uuid.UUID
	pending  sync.Map // interview id -> struct{}, queued or being indexed
	failedAt sync.Map // interview id -> time.Time of the last failure
	now      func() time.Time
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewTranscriptIndexer(
	interviews repositories.InterviewRepository,
	conversations repositories.ConversationRepository,
	embedder Embedder,
	store TranscriptStore,
	metrics *Metrics,
	log *zap.Logger,
	cfg IndexerConfig,
) TranscriptIndexer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Minute
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = defaultChunkOverlap
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &transcriptIndexer{
		interviews:    interviews,
		conversations: conversations,
		embedder:      embedder,
		store:         store,
		chunker:       NewTextChunker(),
		metrics:       metrics,
		log:           log,
		config:        cfg,
		queue:         make(chan uuid.UUID, 100),
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
}

// Start implements TranscriptIndexer.
func (w *transcriptIndexer) Start(ctx context.Context) {
	w.log.Info("🚀 Starting transcript indexer", zap.Int("concurrency", w.config.Concurrency))

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollUnindexed(ctx)
}

// Stop implements TranscriptIndexer.
func (w *transcriptIndexer) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("🛑 Stopping transcript indexer...")
		close(w.stopChan)
	})
	w.wg.Wait()
}

// Enqueue implements TranscriptIndexer. It never blocks the caller; a dropped id is picked
// up again by the poller. An id already queued or being indexed is skipped.
func (w *transcriptIndexer) Enqueue(interviewID uuid.UUID) {
	select {
	case <-w.stopChan:
		w.log.Warn("⚠️ Indexer stopped, cannot enqueue interview", zap.String("interview_id", interviewID.String()))
		return
	default:
	}

	if _, loaded := w.pending.LoadOrStore(interviewID, struct{}{}); loaded {
		w.log.Debug("⏭️ Transcript already pending", zap.String("interview_id", interviewID.String()))
		return
	}

	select {
	case w.queue <- interviewID:
		w.log.Debug("📥 Transcript enqueued", zap.String("interview_id", interviewID.String()))
	default:
		w.pending.Delete(interviewID)
		w.log.Warn("⚠️ Indexer queue full, deferring to poller", zap.String("interview_id", interviewID.String()))
	}
}

// coolingDown reports whether the interview failed within the retry backoff.
func (w *transcriptIndexer) coolingDown(interviewID uuid.UUID) bool {
	last, ok := w.failedAt.Load(interviewID)
	if !ok {
		return false
	}
	return w.now().Sub(last.(time.Time)) < w.config.RetryBackoff
}

// IndexInterview implements TranscriptIndexer.
func (w *transcriptIndexer) IndexInterview(ctx context.Context, interviewID uuid.UUID) error {
	interview, err := w.interviews.FindByID(interviewID)
	if err != nil {
		return err
	}
	if interview.Status != models.InterviewCompleted {
		return fmt.Errorf("interview %s is not completed", interviewID)
	}
	if interview.ConversationID == nil {
		return fmt.Errorf("interview %s has no conversation", interviewID)
	}

	conversation, err := w.conversations.FindByID(*interview.ConversationID)
	if err != nil {
		return err
	}

	chunks := w.chunker.ChunkText(FormatTranscript(conversation.Messages), w.config.ChunkSize, w.config.ChunkOverlap)
	embeddings := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		embedding, err := w.embedder.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		embeddings = append(embeddings, embedding)
	}

	if err := w.store.UpsertTranscript(ctx, interview, chunks, embeddings); err != nil {
		return err
	}

	return w.interviews.MarkIndexed(interview.ID)
}

// Search implements TranscriptIndexer.
func (w *transcriptIndexer) Search(ctx context.Context, query string, limit int) ([]models.TranscriptMatch, error) {
	embedding, err := w.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := w.store.SearchTranscripts(ctx, embedding, limit)
	if err != nil {
		return nil, err
	}

	matches := make([]models.TranscriptMatch, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, models.TranscriptMatch{
			InterviewID: hit.InterviewID,
			JobID:       hit.JobID,
			CandidateID: hit.CandidateID,
			Score:       hit.Score,
			Excerpt:     hit.Text,
		})
	}
	return matches, nil
}

func (w *transcriptIndexer) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.log.Debug("👷 Indexer worker stopped", zap.Int("worker", workerID))
			return
		case <-ctx.Done():
			return
		case interviewID := <-w.queue:
			log := w.log.With(zap.Int("worker", workerID), zap.String("interview_id", interviewID.String()))
			err := w.IndexInterview(ctx, interviewID)
			if err != nil {
				// Record the failure before releasing the id so the poller sees the backoff.
				w.failedAt.Store(interviewID, w.now())
				w.pending.Delete(interviewID)
				w.metrics.TranscriptsIndexed.WithLabelValues("error").Inc()
				log.Error("❌ Failed to index transcript", zap.Error(err))
				continue
			}
			w.failedAt.Delete(interviewID)
			w.pending.Delete(interviewID)
			w.metrics.TranscriptsIndexed.WithLabelValues("ok").Inc()
			log.Info("✅ Transcript indexed")
		}
	}
}

func (w *transcriptIndexer) pollUnindexed(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			interviews, err := w.interviews.FindUnindexedCompleted(10)
			if err != nil {
				w.log.Warn("⚠️ Failed to fetch unindexed interviews", zap.Error(err))
				continue
			}

			if len(interviews) > 0 {
				w.log.Info("📋 Found unindexed transcripts", zap.Int("count", len(interviews)))
			}

			for _, interview := range interviews {
				if w.coolingDown(interview.ID) {
					continue
				}
				w.Enqueue(interview.ID)
			}
		}
	}
}

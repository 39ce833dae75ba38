package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/config"
	"alfredoptarigan/ai-interviewer/internal/repositories"
	"alfredoptarigan/ai-interviewer/internal/services"
)

// Backfills the transcript index with every completed interview that has not been indexed yet,
// or re-indexes a single interview with -interview.
func main() {
	interviewFlag := flag.String("interview", "", "index only this interview id")
	batchSize := flag.Int("batch", 20, "interviews fetched per round")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	log, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !cfg.IndexingEnabled() {
		log.Fatal("❌ QDRANT_URL and GEMINI_API_KEY must be set")
	}

	log.Info("🚀 Starting transcript reindex...")

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize database", zap.Error(err))
	}

	ctx := context.Background()

	gemini, err := services.NewGeminiService(ctx, services.GeminiConfig{
		APIKey:     cfg.LLM.GeminiAPIKey,
		Model:      cfg.LLM.GeminiModel,
		EmbedModel: cfg.LLM.EmbedModel,
	})
	if err != nil {
		log.Fatal("❌ Failed to initialize Gemini", zap.Error(err))
	}

	store, err := services.NewQdrantStore(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize Qdrant", zap.Error(err))
	}
	if err := store.InitCollection(ctx); err != nil {
		log.Fatal("❌ Failed to initialize collection", zap.Error(err))
	}

	interviewRepo := repositories.NewInterviewRepository(db)
	indexer := services.NewTranscriptIndexer(
		interviewRepo,
		repositories.NewConversationRepository(db),
		gemini,
		store,
		nil,
		log,
		services.IndexerConfig{},
	)

	if *interviewFlag != "" {
		id, err := uuid.Parse(*interviewFlag)
		if err != nil {
			log.Fatal("❌ Invalid interview id", zap.String("interview", *interviewFlag))
		}
		if err := indexer.IndexInterview(ctx, id); err != nil {
			log.Fatal("❌ Failed to index interview", zap.String("interview_id", id.String()), zap.Error(err))
		}
		log.Info("✅ Interview indexed", zap.String("interview_id", id.String()))
		return
	}

	successCount := 0
	failed := make(map[uuid.UUID]bool)

	for {
		interviews, err := interviewRepo.FindUnindexedCompleted(*batchSize + len(failed))
		if err != nil {
			log.Fatal("❌ Failed to fetch unindexed interviews", zap.Error(err))
		}

		progressed := false
		for _, interview := range interviews {
			if failed[interview.ID] {
				continue
			}
			progressed = true

			if err := indexer.IndexInterview(ctx, interview.ID); err != nil {
				log.Error("   ❌ Failed to index interview", zap.String("interview_id", interview.ID.String()), zap.Error(err))
				failed[interview.ID] = true
				continue
			}
			successCount++
			log.Info("   ✅ Indexed", zap.String("interview_id", interview.ID.String()))
		}

		if !progressed {
			break
		}
	}

	// Summary
	log.Info(strings.Repeat("=", 60))
	log.Info("📊 Reindex Summary", zap.Int("successful", successCount), zap.Int("failed", len(failed)))
	log.Info(strings.Repeat("=", 60))

	if len(failed) > 0 {
		log.Warn("⚠️ Some transcripts failed to index. Please check the logs above.")
		os.Exit(1)
	}

	log.Info("✅ All transcripts indexed successfully!")
}

package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/models"
)

// embeddingDimensions matches text-embedding-004.
const embeddingDimensions = 768

// TranscriptStore is the vector index of completed interview transcripts.
type TranscriptStore interface {
	InitCollection(ctx context.Context) error
	UpsertTranscript(ctx context.Context, interview *models.Interview, chunks []string, embeddings [][]float32) error
	SearchTranscripts(ctx context.Context, queryEmbedding []float32, limit int) ([]TranscriptHit, error)
	DeleteTranscript(ctx context.Context, interviewID uuid.UUID) error
}

type TranscriptHit struct {
	InterviewID string
	JobID       string
	CandidateID string
	ChunkIndex  int
	Score       float32
	Text        string
}

type qdrantStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

func NewQdrantStore(urlStr, apiKey, collectionName string, log *zap.Logger) (TranscriptStore, error) {
	// Parse URL to extract host, port, and TLS usage
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port unless one is given
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantStore{
		client:         client,
		collectionName: collectionName,
		vectorSize:     embeddingDimensions,
		log:            log,
	}, nil
}

// InitCollection implements TranscriptStore.
func (q *qdrantStore) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Info("✅ Qdrant collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("✅ Qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// UpsertTranscript implements TranscriptStore. Point ids are derived from the interview id and
// chunk index, so reindexing an interview overwrites its previous points.
func (q *qdrantStore) UpsertTranscript(ctx context.Context, interview *models.Interview, chunks []string, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d != %d", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(chunkPointID(interview.ID, i).String()),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"interview_id": interview.ID.String(),
				"job_id":       interview.JobID.String(),
				"candidate_id": interview.CandidateID.String(),
				"chunk_index":  i,
				"text":         chunk,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// SearchTranscripts implements TranscriptStore.
func (q *qdrantStore) SearchTranscripts(ctx context.Context, queryEmbedding []float32, limit int) ([]TranscriptHit, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]TranscriptHit, 0, len(points))
	for _, point := range points {
		payload := point.Payload
		hits = append(hits, TranscriptHit{
			InterviewID: payloadString(payload, "interview_id"),
			JobID:       payloadString(payload, "job_id"),
			CandidateID: payloadString(payload, "candidate_id"),
			ChunkIndex:  int(payload["chunk_index"].GetIntegerValue()),
			Score:       point.Score,
			Text:        payloadString(payload, "text"),
		})
	}

	return hits, nil
}

// DeleteTranscript implements TranscriptStore.
func (q *qdrantStore) DeleteTranscript(ctx context.Context, interviewID uuid.UUID) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("interview_id", interviewID.String()),
		},
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: filter,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete transcript points: %w", err)
	}

	return nil
}

func chunkPointID(interviewID uuid.UUID, index int) uuid.UUID {
	return uuid.NewSHA1(interviewID, []byte(strconv.Itoa(index)))
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

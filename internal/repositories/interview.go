package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/ai-interviewer/internal/models"
)

type InterviewRepository interface {
	CreateWithConversation(interview *models.Interview, conversation *models.Conversation) error
	FindByID(id uuid.UUID) (*models.Interview, error)
	FindActiveByPair(jobID, candidateID uuid.UUID) (*models.Interview, error)
	UpdateVideoURL(id uuid.UUID, videoURL string) error
	FindUnindexedCompleted(limit int) ([]models.Interview, error)
	MarkIndexed(id uuid.UUID) error
}

type interviewRepository struct {
	db *gorm.DB
}

func NewInterviewRepository(db *gorm.DB) InterviewRepository {
	return &interviewRepository{db: db}
}

// CreateWithConversation stores the interview, its conversation and the seeded transcript
// in one transaction.
func (r *interviewRepository) CreateWithConversation(interview *models.Interview, conversation *models.Conversation) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		interview.ConversationID = &conversation.ID
		conversation.InterviewID = interview.ID

		if err := tx.Create(interview).Error; err != nil {
			return fmt.Errorf("failed to create interview: %w", err)
		}
		if err := tx.Create(conversation).Error; err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		interview.ConversationID = nil
		return err
	}
	return nil
}

func (r *interviewRepository) FindByID(id uuid.UUID) (*models.Interview, error) {
	var interview models.Interview
	if err := r.db.Where("id = ?", id).First(&interview).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("interview not found: %w", err)
		}
		return nil, fmt.Errorf("failed to find interview: %w", err)
	}
	return &interview, nil
}

// FindActiveByPair returns the pending or in-progress interview for a job/candidate pair.
func (r *interviewRepository) FindActiveByPair(jobID, candidateID uuid.UUID) (*models.Interview, error) {
	var interview models.Interview
	err := r.db.
		Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
		Where("status IN ?", []models.InterviewStatus{models.InterviewPending, models.InterviewInProgress}).
		Order("created_at ASC").
		First(&interview).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("interview not found: %w", err)
		}
		return nil, fmt.Errorf("failed to find interview: %w", err)
	}
	return &interview, nil
}

func (r *interviewRepository) UpdateVideoURL(id uuid.UUID, videoURL string) error {
	result := r.db.Model(&models.Interview{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"video_url":  videoURL,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update video url: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("interview not found: %w", gorm.ErrRecordNotFound)
	}

	return nil
}

func (r *interviewRepository) FindUnindexedCompleted(limit int) ([]models.Interview, error) {
	var interviews []models.Interview
	err := r.db.
		Where("status = ? AND indexed_at IS NULL", models.InterviewCompleted).
		Order("updated_at ASC").
		Limit(limit).
		Find(&interviews).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find unindexed interviews: %w", err)
	}

	return interviews, nil
}

func (r *interviewRepository) MarkIndexed(id uuid.UUID) error {
	result := r.db.Model(&models.Interview{}).
		Where("id = ?", id).
		Update("indexed_at", time.Now())

	if result.Error != nil {
		return fmt.Errorf("failed to mark interview indexed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("interview not found: %w", gorm.ErrRecordNotFound)
	}

	return nil
}

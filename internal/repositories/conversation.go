package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/ai-interviewer/internal/models"
)

// ErrConversationEnded is returned when a write targets a conversation that is already ended.
var ErrConversationEnded = errors.New("conversation already ended")

// ConversationRepository is the transcript store: messages are only ever appended.
type ConversationRepository interface {
	FindByID(id uuid.UUID) (*models.Conversation, error)
	CommitTurn(turn *TurnCommit) error
	End(conversationID, interviewID uuid.UUID) error
}

// TurnCommit is everything one reply writes. It is persisted all-or-nothing.
type TurnCommit struct {
	ConversationID  uuid.UUID
	InterviewID     uuid.UUID
	Messages        []models.Message
	Progress        models.ProgressState
	IsEnded         bool
	InterviewStatus models.InterviewStatus
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// FindByID implements ConversationRepository. Messages come back in conversation order.
func (r *conversationRepository) FindByID(id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", id).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("conversation not found: %w", err)
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &conversation, nil
}

// CommitTurn implements ConversationRepository.
func (r *conversationRepository) CommitTurn(turn *TurnCommit) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		result := tx.Model(&models.Conversation{}).
			Where("id = ? AND is_ended = ?", turn.ConversationID, false).
			Updates(map[string]interface{}{
				"progress_main_questions_asked":      turn.Progress.MainQuestionsAsked,
				"progress_follow_up_questions_asked": turn.Progress.FollowUpQuestionsAsked,
				"progress_current_question_type":     turn.Progress.CurrentQuestionType,
				"progress_interview_phase":           turn.Progress.InterviewPhase,
				"is_ended":                           turn.IsEnded,
				"updated_at":                         now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update conversation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrConversationEnded
		}

		if len(turn.Messages) > 0 {
			if err := tx.Create(&turn.Messages).Error; err != nil {
				return fmt.Errorf("failed to append messages: %w", err)
			}
		}

		result = tx.Model(&models.Interview{}).
			Where("id = ?", turn.InterviewID).
			Updates(map[string]interface{}{
				"status":     turn.InterviewStatus,
				"updated_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update interview status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("interview not found: %w", gorm.ErrRecordNotFound)
		}

		return nil
	})
}

// End marks the conversation ended and the interview completed without appending messages.
func (r *conversationRepository) End(conversationID, interviewID uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		result := tx.Model(&models.Conversation{}).
			Where("id = ? AND is_ended = ?", conversationID, false).
			Updates(map[string]interface{}{
				"is_ended":                 true,
				"progress_interview_phase": models.PhaseCompleted,
				"updated_at":               now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to end conversation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrConversationEnded
		}

		result = tx.Model(&models.Interview{}).
			Where("id = ?", interviewID).
			Updates(map[string]interface{}{
				"status":     models.InterviewCompleted,
				"updated_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to complete interview: %w", result.Error)
		}
		return nil
	})
}

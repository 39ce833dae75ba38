package models

import (
	"time"

	"github.com/google/uuid"
)

type InterviewStatus string

const (
	InterviewPending    InterviewStatus = "pending"
	InterviewInProgress InterviewStatus = "in_progress"
	InterviewCompleted  InterviewStatus = "completed"
)

type QuestionType string

const (
	QuestionTechnical           QuestionType = "technical"
	QuestionExperience          QuestionType = "experience"
	QuestionTechnicalChallenges QuestionType = "technical_challenges"
	QuestionTeamCollaboration   QuestionType = "team_collaboration"
	QuestionBehavioral          QuestionType = "behavioral"
	QuestionCandidateQuestions  QuestionType = "candidate_questions"
	QuestionConclusion          QuestionType = "conclusion"
)

// AllQuestionTypes is the closed set accepted in an interview configuration.
var AllQuestionTypes = []QuestionType{
	QuestionTechnical,
	QuestionExperience,
	QuestionTechnicalChallenges,
	QuestionTeamCollaboration,
	QuestionBehavioral,
	QuestionCandidateQuestions,
	QuestionConclusion,
}

// QuestionSlots is the fixed order main questions walk through.
var QuestionSlots = []QuestionType{
	QuestionTechnical,
	QuestionExperience,
	QuestionTechnicalChallenges,
	QuestionTeamCollaboration,
	QuestionBehavioral,
}

func IsValidQuestionType(t QuestionType) bool {
	for _, known := range AllQuestionTypes {
		if known == t {
			return true
		}
	}
	return false
}

type InterviewPhase string

const (
	PhaseStarted    InterviewPhase = "started"
	PhaseInProgress InterviewPhase = "in_progress"
	PhaseConcluding InterviewPhase = "concluding"
	PhaseCompleted  InterviewPhase = "completed"
)

// Rank orders phases so callers can keep them monotonic.
func (p InterviewPhase) Rank() int {
	switch p {
	case PhaseStarted:
		return 0
	case PhaseInProgress:
		return 1
	case PhaseConcluding:
		return 2
	case PhaseCompleted:
		return 3
	default:
		return -1
	}
}

// InterviewConfig is the resolved, immutable configuration snapshot of one interview.
type InterviewConfig struct {
	MaxMainQuestions     int            `json:"maxMainQuestions"`
	MaxFollowUpQuestions int            `json:"maxFollowUpQuestions"`
	MaxTotalQuestions    int            `json:"maxTotalQuestions"`
	ClosingStatement     string         `json:"closingStatement"`
	QuestionTypes        []QuestionType `json:"questionTypes"`
	CustomInstructions   string         `json:"customInstructions"`
}

// ProgressState tracks how far a conversation has moved through its question budget.
type ProgressState struct {
	MainQuestionsAsked     int            `gorm:"not null;default:0" json:"mainQuestionsAsked"`
	FollowUpQuestionsAsked int            `gorm:"not null;default:0" json:"followUpQuestionsAsked"`
	CurrentQuestionType    QuestionType   `gorm:"type:text" json:"currentQuestionType"`
	InterviewPhase         InterviewPhase `gorm:"type:text" json:"interviewPhase"`
}

type Interview struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	JobID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_interview_pair" json:"jobId"`
	CandidateID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_interview_pair" json:"candidateId"`
	Status         InterviewStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	Config         InterviewConfig `gorm:"type:text;serializer:json" json:"interviewConfig"`
	ConversationID *uuid.UUID      `gorm:"type:uuid" json:"conversationId,omitempty"`
	VideoURL       *string         `gorm:"type:text" json:"videoUrl"`
	IndexedAt      *time.Time      `json:"indexedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (Interview) TableName() string {
	return "interviews"
}

package models

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleAssistant MessageRole = "assistant"
	RoleUser      MessageRole = "user"
)

// Message is one entry of the append-only transcript. Sequence is the conversation order.
type Message struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_message_seq" json:"-"`
	Sequence       int         `gorm:"not null;uniqueIndex:idx_message_seq" json:"sequence"`
	Role           MessageRole `gorm:"type:text;not null" json:"role"`
	Text           string      `gorm:"type:text;not null" json:"text"`
	CreatedAt      time.Time   `json:"timestamp"`
}

func (Message) TableName() string {
	return "messages"
}

type Conversation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InterviewID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"interviewId"`
	IsEnded     bool      `gorm:"not null;default:false" json:"isEnded"`
	// Config is the authoritative snapshot used by the termination policy.
	Config    *InterviewConfig `gorm:"type:text;serializer:json" json:"interviewConfig,omitempty"`
	Progress  ProgressState    `gorm:"embedded;embeddedPrefix:progress_" json:"progress"`
	Messages  []Message        `gorm:"foreignKey:ConversationID" json:"messages"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

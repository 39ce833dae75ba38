package models

import (
	"time"

	"github.com/google/uuid"
)

type Candidate struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName        string    `gorm:"type:text;not null" json:"firstName"`
	LastName         string    `gorm:"type:text" json:"lastName"`
	Email            string    `gorm:"type:text;not null;uniqueIndex" json:"email"`
	ResumeFilename   string    `gorm:"type:text" json:"resumeFilename,omitempty"`
	ResumePath       string    `gorm:"type:text" json:"-"`
	OriginalFileName string    `gorm:"type:text" json:"resumeOriginalFilename,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (c *Candidate) TableName() string {
	return "candidates"
}

func (c *Candidate) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

type Job struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string    `gorm:"type:text;not null" json:"title"`
	Company      string    `gorm:"type:text" json:"company"`
	Description  string    `gorm:"type:text" json:"description"`
	Requirements []string  `gorm:"type:text;serializer:json" json:"requirements"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Job) TableName() string {
	return "jobs"
}

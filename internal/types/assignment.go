package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentStatus string

const (
	AssignmentStatusProcessing AssignmentStatus = "processing"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusError      AssignmentStatus = "error"
)

type Assignment struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Title        string            `gorm:"column:title;not null" json:"title"`
	Instructions string            `gorm:"column:instructions;type:text" json:"instructions"`
	Status       AssignmentStatus  `gorm:"column:status;not null;default:'processing'" json:"status"`
	SolutionText string            `gorm:"column:solution_text;type:text" json:"solution_text,omitempty"`
	ErrorMessage string            `gorm:"column:error_message" json:"error_message,omitempty"`
	Attachments  []*SourceDocument `gorm:"foreignKey:AssignmentID;references:ID" json:"attachments,omitempty"`
	CreatedAt    time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `gorm:"index" json:"deleted_at,omitempty"`
}

func (Assignment) TableName() string { return "assignment" }

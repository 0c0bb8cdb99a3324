package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExamStatus string

const (
	ExamStatusDraft      ExamStatus = "draft"
	ExamStatusGenerating ExamStatus = "generating"
	ExamStatusReady      ExamStatus = "ready"
	ExamStatusCompleted  ExamStatus = "completed"
	ExamStatusError      ExamStatus = "error"
)

type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeShortAnswer QuestionType = "short_answer"
	QuestionTypeShortEssay  QuestionType = "short_essay"
)

type Exam struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	SourceDocumentID *uuid.UUID      `gorm:"type:uuid;index" json:"source_document_id,omitempty"`
	Title            string          `gorm:"column:title;not null" json:"title"`
	Subject          string          `gorm:"column:subject" json:"subject"`
	Difficulty       string          `gorm:"column:difficulty" json:"difficulty"`
	DurationMinutes  int             `gorm:"column:duration_minutes" json:"duration_minutes"`
	Status           ExamStatus      `gorm:"column:status;not null;default:'draft'" json:"status"`
	Score            *int            `gorm:"column:score" json:"score,omitempty"`
	ErrorMessage     string          `gorm:"column:error_message" json:"error_message,omitempty"`
	Questions        []*ExamQuestion `gorm:"foreignKey:ExamID;references:ID" json:"questions,omitempty"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Exam) TableName() string { return "exam" }

type ExamQuestion struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ExamID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"exam_id"`
	Position           int            `gorm:"column:position;not null" json:"position"`
	Question           string         `gorm:"column:question;type:text;not null" json:"question"`
	Options            datatypes.JSON `gorm:"column:options;type:jsonb" json:"options"`
	CorrectAnswerIndex int            `gorm:"column:correct_answer_index;not null" json:"correct_answer_index"`
	Explanation        string         `gorm:"column:explanation;type:text" json:"explanation"`
	Type               QuestionType   `gorm:"column:type;not null;default:'mcq'" json:"type"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
}

func (ExamQuestion) TableName() string { return "exam_question" }

// OptionList decodes the stored options array. A missing or malformed
// column decodes to nil.
func (q *ExamQuestion) OptionList() []string {
	if len(q.Options) == 0 {
		return nil
	}
	var options []string
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return nil
	}
	return options
}

// ExamAttempt stores the submitted answer list exactly as graded, with the
// resulting score and elapsed time.
type ExamAttempt struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ExamID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"exam_id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Answers          datatypes.JSON `gorm:"column:answers;type:jsonb" json:"answers"`
	Score            int            `gorm:"column:score;not null" json:"score"`
	TimeSpentSeconds int            `gorm:"column:time_spent_seconds" json:"time_spent_seconds"`
	FeedbackText     string         `gorm:"column:feedback_text;type:text" json:"feedback_text,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
}

func (ExamAttempt) TableName() string { return "exam_attempt" }

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StudyKitStatus string

const (
	StudyKitStatusProcessing StudyKitStatus = "processing"
	StudyKitStatusReady      StudyKitStatus = "ready"
	StudyKitStatusError      StudyKitStatus = "error"
)

type StudyKit struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	SourceDocumentID uuid.UUID       `gorm:"type:uuid;not null;index" json:"source_document_id"`
	SourceDocument   *SourceDocument `gorm:"constraint:OnDelete:CASCADE;foreignKey:SourceDocumentID;references:ID" json:"source_document,omitempty"`
	Title            string          `gorm:"column:title" json:"title"`
	Subject          string          `gorm:"column:subject" json:"subject"`
	SummaryText      string          `gorm:"column:summary_text;type:text" json:"summary_text"`
	Status           StudyKitStatus  `gorm:"column:status;not null;default:'processing'" json:"status"`
	ErrorMessage     string          `gorm:"column:error_message" json:"error_message,omitempty"`
	Flashcards       []*Flashcard    `gorm:"foreignKey:StudyKitID;references:ID" json:"flashcards,omitempty"`
	QuizQuestions    []*QuizQuestion `gorm:"foreignKey:StudyKitID;references:ID" json:"quiz_questions,omitempty"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (StudyKit) TableName() string { return "study_kit" }

type Flashcard struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudyKitID uuid.UUID `gorm:"type:uuid;not null;index" json:"study_kit_id"`
	Position   int       `gorm:"column:position;not null" json:"position"`
	Question   string    `gorm:"column:question;type:text;not null" json:"question"`
	Answer     string    `gorm:"column:answer;type:text;not null" json:"answer"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (Flashcard) TableName() string { return "flashcard" }

type QuizQuestion struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudyKitID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"study_kit_id"`
	Position           int            `gorm:"column:position;not null" json:"position"`
	Question           string         `gorm:"column:question;type:text;not null" json:"question"`
	Options            datatypes.JSON `gorm:"column:options;type:jsonb" json:"options"`
	CorrectAnswerIndex int            `gorm:"column:correct_answer_index;not null" json:"correct_answer_index"`
	Explanation        string         `gorm:"column:explanation;type:text" json:"explanation"`
	Type               QuestionType   `gorm:"column:type;not null;default:'mcq'" json:"type"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
}

func (QuizQuestion) TableName() string { return "quiz_question" }

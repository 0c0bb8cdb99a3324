package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusError      DocumentStatus = "error"
)

// MediaKind is the declared shape of a source document, used to pick the
// extraction prompt.
type MediaKind string

const (
	MediaKindDocument  MediaKind = "document"
	MediaKindSlideDeck MediaKind = "slide-deck"
	MediaKindImage     MediaKind = "image"
)

type SourceDocument struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	AssignmentID *uuid.UUID     `gorm:"type:uuid;index" json:"assignment_id,omitempty"`
	AttachedPos  int            `gorm:"column:attached_pos" json:"attached_pos"`
	OriginalName string         `gorm:"column:original_name;not null" json:"original_name"`
	LocationRef  string         `gorm:"column:location_ref;not null" json:"location_ref"`
	MediaKind    MediaKind      `gorm:"column:media_kind" json:"media_kind"`
	MimeType     string         `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes    int64          `gorm:"column:size_bytes" json:"size_bytes"`
	Status       DocumentStatus `gorm:"column:status;not null;default:'uploaded'" json:"status"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SourceDocument) TableName() string { return "source_document" }

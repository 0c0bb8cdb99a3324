package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ExtractedContent is the cached plain-text transcription of one
// SourceDocument. The unique index on document_id keeps the cache at most
// one row per document; writes go through an idempotent upsert.
type ExtractedContent struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"document_id"`
	Text       string         `gorm:"column:text;type:text;not null" json:"text"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (ExtractedContent) TableName() string { return "extracted_content" }

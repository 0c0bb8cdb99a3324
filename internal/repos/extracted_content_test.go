package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/types"
	"gorm.io/datatypes"
)

func TestUpsertIsIdempotentPerDocument(t *testing.T) {
	db, log := testDB(t)
	repo := NewExtractedContentRepo(db, log)
	docID := uuid.New()

	if _, err := repo.Upsert(context.Background(), nil, &types.ExtractedContent{
		DocumentID: docID,
		Text:       "first pass",
		Metadata:   datatypes.JSON([]byte(`{"native":true}`)),
	}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	if _, err := repo.Upsert(context.Background(), nil, &types.ExtractedContent{
		DocumentID: docID,
		Text:       "second pass",
		Metadata:   datatypes.JSON([]byte(`{"native":false}`)),
	}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	var count int64
	if err := db.Model(&types.ExtractedContent{}).Where("document_id = ?", docID).Count(&count).Error; err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row per document, got %d", count)
	}

	row, err := repo.GetByDocumentID(context.Background(), nil, docID)
	if err != nil {
		t.Fatalf("GetByDocumentID: %v", err)
	}
	if row == nil || row.Text != "second pass" {
		t.Fatalf("upsert must overwrite, got %+v", row)
	}
}

func TestGetByDocumentIDMissReturnsNil(t *testing.T) {
	db, log := testDB(t)
	repo := NewExtractedContentRepo(db, log)

	row, err := repo.GetByDocumentID(context.Background(), nil, uuid.New())
	if err != nil {
		t.Fatalf("a miss must not be an error: %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil row on miss, got %+v", row)
	}
}

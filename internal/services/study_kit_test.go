package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/repos"
	"github.com/studyforge/studyforge-backend/internal/types"
)

func newStudyKitFixture(t *testing.T, fake *fakeModelClient) (*StudyKitService, uuid.UUID, uuid.UUID) {
	t.Helper()
	db := testDB(t)
	log := testLogger(t)
	documents := repos.NewDocumentRepo(db, log)
	contents := repos.NewExtractedContentRepo(db, log)
	kits := repos.NewStudyKitRepo(db, log)
	policy := testPolicy(t, fake)
	extractor := NewContentExtractor(log, policy)
	extraction := NewExtractionService(db, log, documents, contents, extractor,
		&fakeDownloader{data: []byte("The Krebs cycle produces ATP.")}, nil, time.Second, time.Second)
	generation := NewGenerationService(log, policy)
	svc := NewStudyKitService(db, log, kits, documents, extraction, generation, time.Second)

	userID := uuid.New()
	doc, err := documents.Create(context.Background(), nil, &types.SourceDocument{
		ID:           uuid.New(),
		UserID:       userID,
		OriginalName: "bio.txt",
		LocationRef:  "https://files.example/bio.txt",
		MediaKind:    types.MediaKindDocument,
		MimeType:     "text/plain",
		Status:       types.DocumentStatusUploaded,
	})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	return svc, doc.ID, userID
}

func studyKitHappyPathClient(t *testing.T) *fakeModelClient {
	t.Helper()
	return &fakeModelClient{responses: []string{
		`{"summary":"ATP production overview","title":"The Krebs Cycle","subject":"Biology"}`,
		`[{"question":"What does the Krebs cycle produce?","answer":"ATP"}]`,
		questionBatchJSON(t, 5, types.QuestionTypeMCQ),
		questionBatchJSON(t, 5, types.QuestionTypeShortAnswer),
	}}
}

func TestStudyKitCreateHappyPath(t *testing.T) {
	fake := studyKitHappyPathClient(t)
	svc, docID, userID := newStudyKitFixture(t, fake)

	kit, err := svc.Create(context.Background(), userID, CreateStudyKitInput{
		SourceDocumentID: docID,
		Model:            ModelSelection{Alias: AliasAuto},
		FlashcardCount:   10,
		QuestionCount:    10,
		QuestionTypes:    []types.QuestionType{types.QuestionTypeMCQ, types.QuestionTypeShortAnswer},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if kit.Status != types.StudyKitStatusReady {
		t.Fatalf("expected ready kit, got %s (%s)", kit.Status, kit.ErrorMessage)
	}
	if kit.Title != "The Krebs Cycle" || kit.SummaryText == "" {
		t.Fatalf("summary not persisted: %+v", kit)
	}
	if len(kit.Flashcards) != 1 {
		t.Fatalf("expected 1 flashcard, got %d", len(kit.Flashcards))
	}
	if len(kit.QuizQuestions) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(kit.QuizQuestions))
	}
	for i, q := range kit.QuizQuestions {
		if q.Position != i {
			t.Fatalf("question %d has position %d, want contiguous 0..9", i, q.Position)
		}
	}
	for i := 0; i < 5; i++ {
		if kit.QuizQuestions[i].Type != types.QuestionTypeMCQ {
			t.Fatalf("question %d should be mcq", i)
		}
	}
	for i := 5; i < 10; i++ {
		if kit.QuizQuestions[i].Type != types.QuestionTypeShortAnswer {
			t.Fatalf("question %d should be short_answer", i)
		}
	}
}

func TestStudyKitCreateProviderFailureSetsErrorState(t *testing.T) {
	fake := &fakeModelClient{errs: []error{fmt.Errorf("provider down")}}
	svc, docID, userID := newStudyKitFixture(t, fake)

	kit, err := svc.Create(context.Background(), userID, CreateStudyKitInput{
		SourceDocumentID: docID,
		Model:            ModelSelection{Alias: AliasAuto},
	})
	if err != nil {
		t.Fatalf("failed runs still return the kit: %v", err)
	}
	if kit.Status != types.StudyKitStatusError {
		t.Fatalf("expected error status, got %s", kit.Status)
	}
	if kit.ErrorMessage == "" {
		t.Fatalf("expected a stored error message")
	}
}

func TestStudyKitRetryFromError(t *testing.T) {
	fake := &fakeModelClient{errs: []error{fmt.Errorf("provider down")}}
	svc, docID, userID := newStudyKitFixture(t, fake)

	kit, err := svc.Create(context.Background(), userID, CreateStudyKitInput{
		SourceDocumentID: docID,
		Model:            ModelSelection{Alias: AliasAuto},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if kit.Status != types.StudyKitStatusError {
		t.Fatalf("expected error status before retry, got %s", kit.Status)
	}

	// Queue the happy-path responses behind the consumed failure.
	happy := studyKitHappyPathClient(t)
	fake.mu.Lock()
	fake.errs = append(fake.errs, nil, nil, nil, nil)
	fake.responses = append([]string{""}, happy.responses...)
	fake.mu.Unlock()

	retried, err := svc.Retry(context.Background(), userID, kit.ID, CreateStudyKitInput{
		Model:          ModelSelection{Alias: AliasAuto},
		FlashcardCount: 10,
		QuestionCount:  10,
		QuestionTypes:  []types.QuestionType{types.QuestionTypeMCQ, types.QuestionTypeShortAnswer},
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != types.StudyKitStatusReady {
		t.Fatalf("expected ready after retry, got %s (%s)", retried.Status, retried.ErrorMessage)
	}
	if retried.ErrorMessage != "" {
		t.Fatalf("error message should be cleared on success")
	}
}

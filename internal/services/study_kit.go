package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
	"github.com/studyforge/studyforge-backend/internal/pkg/guard"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/repos"
	"github.com/studyforge/studyforge-backend/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateStudyKitInput selects the source document plus the generation knobs.
type CreateStudyKitInput struct {
	SourceDocumentID uuid.UUID
	Model            ModelSelection
	SummaryLength    SummaryLength
	FlashcardCount   int
	QuestionCount    int
	QuestionTypes    []types.QuestionType
	Difficulty       string
}

type StudyKitService struct {
	db              *gorm.DB
	log             *logger.Logger
	kits            repos.StudyKitRepo
	documents       repos.DocumentRepo
	extraction      *ExtractionService
	generation      *GenerationService
	generateTimeout time.Duration
}

func NewStudyKitService(
	db *gorm.DB,
	log *logger.Logger,
	kits repos.StudyKitRepo,
	documents repos.DocumentRepo,
	extraction *ExtractionService,
	generation *GenerationService,
	generateTimeout time.Duration,
) *StudyKitService {
	return &StudyKitService{
		db:              db,
		log:             log.With("service", "StudyKitService"),
		kits:            kits,
		documents:       documents,
		extraction:      extraction,
		generation:      generation,
		generateTimeout: generateTimeout,
	}
}

// Create registers the kit in processing state and runs the generation
// pipeline synchronously. The returned kit always reflects the terminal
// state of this run, error included.
func (s *StudyKitService) Create(ctx context.Context, userID uuid.UUID, input CreateStudyKitInput) (*types.StudyKit, error) {
	doc, err := s.documents.GetByIDForUser(ctx, nil, input.SourceDocumentID, userID)
	if err != nil {
		return nil, err
	}

	kit, err := s.kits.Create(ctx, nil, &types.StudyKit{
		UserID:           userID,
		SourceDocumentID: doc.ID,
		Status:           types.StudyKitStatusProcessing,
	})
	if err != nil {
		return nil, err
	}

	return s.run(ctx, userID, kit, doc, input)
}

// Retry re-enters the pipeline for a kit in a retryable state, clearing the
// previous results first.
func (s *StudyKitService) Retry(ctx context.Context, userID, kitID uuid.UUID, input CreateStudyKitInput) (*types.StudyKit, error) {
	kit, err := s.kits.GetByIDForUser(ctx, nil, kitID, userID)
	if err != nil {
		return nil, err
	}
	if !kit.Status.CanTransitionTo(types.StudyKitStatusProcessing) {
		return nil, apperr.Validation("study kit in status %q cannot be regenerated", kit.Status)
	}
	doc, err := s.documents.GetByIDForUser(ctx, nil, kit.SourceDocumentID, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"status":        types.StudyKitStatusProcessing,
		"error_message": "",
		"summary_text":  "",
	}
	if err := s.kits.UpdateFields(ctx, nil, kit.ID, fields); err != nil {
		return nil, err
	}
	if err := s.kits.ReplaceFlashcards(ctx, nil, kit.ID, nil); err != nil {
		return nil, err
	}
	if err := s.kits.ReplaceQuizQuestions(ctx, nil, kit.ID, nil); err != nil {
		return nil, err
	}
	kit.Status = types.StudyKitStatusProcessing

	return s.run(ctx, userID, kit, doc, input)
}

func (s *StudyKitService) run(ctx context.Context, userID uuid.UUID, kit *types.StudyKit, doc *types.SourceDocument, input CreateStudyKitInput) (*types.StudyKit, error) {
	if err := s.generate(ctx, kit, doc, input); err != nil {
		s.log.Error("Study kit generation failed", "study_kit_id", kit.ID, "error", err)
		s.fail(ctx, kit.ID, err)
		return s.kits.GetByIDForUser(ctx, nil, kit.ID, userID)
	}
	return s.kits.GetByIDForUser(ctx, nil, kit.ID, userID)
}

func (s *StudyKitService) generate(ctx context.Context, kit *types.StudyKit, doc *types.SourceDocument, input CreateStudyKitInput) error {
	text, err := s.extraction.ResolveContent(ctx, doc)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return apperr.Validation("document %q has no extractable content", doc.OriginalName)
	}
	text = TruncateForPrompt(text)

	summary, err := guard.WithTimeout(ctx, "study_kit_summary", s.generateTimeout, func(ctx context.Context) (*SummaryResult, error) {
		return s.generation.GenerateSummary(ctx, input.Model, text, input.SummaryLength)
	})
	if err != nil {
		return err
	}

	cards, err := guard.WithTimeout(ctx, "study_kit_flashcards", s.generateTimeout, func(ctx context.Context) ([]GeneratedFlashcard, error) {
		return s.generation.GenerateFlashcards(ctx, input.Model, text, input.FlashcardCount)
	})
	if err != nil {
		return err
	}

	questionCount := input.QuestionCount
	if questionCount <= 0 {
		questionCount = 10
	}
	questions, err := guard.WithTimeout(ctx, "study_kit_questions", s.generateTimeout, func(ctx context.Context) ([]GeneratedQuestion, error) {
		return s.generation.GenerateQuestions(ctx, input.Model, text, questionCount, input.QuestionTypes, input.Difficulty)
	})
	if err != nil {
		return err
	}

	flashRows := make([]*types.Flashcard, 0, len(cards))
	for i, card := range cards {
		flashRows = append(flashRows, &types.Flashcard{
			StudyKitID: kit.ID,
			Position:   i,
			Question:   card.Question,
			Answer:     card.Answer,
		})
	}
	quizRows := make([]*types.QuizQuestion, 0, len(questions))
	for i, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return apperr.Parse(err, "encoding question options")
		}
		quizRows = append(quizRows, &types.QuizQuestion{
			StudyKitID:         kit.ID,
			Position:           i,
			Question:           q.Question,
			Options:            datatypes.JSON(options),
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			Explanation:        q.Explanation,
			Type:               q.Type,
		})
	}

	if err := s.kits.ReplaceFlashcards(ctx, nil, kit.ID, flashRows); err != nil {
		return err
	}
	if err := s.kits.ReplaceQuizQuestions(ctx, nil, kit.ID, quizRows); err != nil {
		return err
	}
	return s.kits.UpdateFields(ctx, nil, kit.ID, map[string]any{
		"title":         summary.Title,
		"subject":       summary.Subject,
		"summary_text":  summary.SummaryText,
		"status":        types.StudyKitStatusReady,
		"error_message": "",
	})
}

func (s *StudyKitService) fail(ctx context.Context, kitID uuid.UUID, cause error) {
	fields := map[string]any{
		"status":        types.StudyKitStatusError,
		"error_message": cause.Error(),
	}
	if err := s.kits.UpdateFields(ctx, nil, kitID, fields); err != nil {
		s.log.Error("Failed to record study kit error state", "study_kit_id", kitID, "error", err)
	}
}

func (s *StudyKitService) Get(ctx context.Context, userID, kitID uuid.UUID) (*types.StudyKit, error) {
	return s.kits.GetByIDForUser(ctx, nil, kitID, userID)
}

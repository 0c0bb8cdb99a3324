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

// CreateExamInput builds an exam from either a registered document or a
// pasted block of text; exactly one of SourceDocumentID and Text is set.
type CreateExamInput struct {
	SourceDocumentID uuid.UUID
	Text             string
	Title            string
	Subject          string
	Model            ModelSelection
	QuestionCount    int
	QuestionTypes    []types.QuestionType
	Difficulty       string
	DurationMinutes  int
}

// SubmitAttemptInput carries the raw answer list plus elapsed time.
type SubmitAttemptInput struct {
	Answers          []AnswerSubmission
	TimeSpentSeconds int
	FeedbackModel    ModelSelection
}

type ExamService struct {
	db              *gorm.DB
	log             *logger.Logger
	exams           repos.ExamRepo
	documents       repos.DocumentRepo
	extraction      *ExtractionService
	generation      *GenerationService
	grading         *GradingService
	generateTimeout time.Duration
	feedbackTimeout time.Duration
}

func NewExamService(
	db *gorm.DB,
	log *logger.Logger,
	exams repos.ExamRepo,
	documents repos.DocumentRepo,
	extraction *ExtractionService,
	generation *GenerationService,
	grading *GradingService,
	generateTimeout time.Duration,
	feedbackTimeout time.Duration,
) *ExamService {
	return &ExamService{
		db:              db,
		log:             log.With("service", "ExamService"),
		exams:           exams,
		documents:       documents,
		extraction:      extraction,
		generation:      generation,
		grading:         grading,
		generateTimeout: generateTimeout,
		feedbackTimeout: feedbackTimeout,
	}
}

func (s *ExamService) Create(ctx context.Context, userID uuid.UUID, input CreateExamInput) (*types.Exam, error) {
	var doc *types.SourceDocument
	var sourceID *uuid.UUID
	title := strings.TrimSpace(input.Title)

	if input.SourceDocumentID != uuid.Nil {
		found, err := s.documents.GetByIDForUser(ctx, nil, input.SourceDocumentID, userID)
		if err != nil {
			return nil, err
		}
		doc = found
		sourceID = &found.ID
		if title == "" {
			title = "Exam on " + found.OriginalName
		}
	} else {
		if strings.TrimSpace(input.Text) == "" {
			return nil, apperr.Validation("either a source document or exam text is required")
		}
		if title == "" {
			title = "Practice Exam"
		}
	}

	exam, err := s.exams.Create(ctx, nil, &types.Exam{
		UserID:           userID,
		SourceDocumentID: sourceID,
		Title:            title,
		Subject:          input.Subject,
		Difficulty:       input.Difficulty,
		DurationMinutes:  input.DurationMinutes,
		Status:           types.ExamStatusDraft,
	})
	if err != nil {
		return nil, err
	}

	return s.run(ctx, userID, exam, doc, input)
}

func (s *ExamService) Retry(ctx context.Context, userID, examID uuid.UUID, input CreateExamInput) (*types.Exam, error) {
	exam, err := s.exams.GetByIDForUser(ctx, nil, examID, userID)
	if err != nil {
		return nil, err
	}
	if !exam.Status.CanTransitionTo(types.ExamStatusGenerating) {
		return nil, apperr.Validation("exam in status %q cannot be regenerated", exam.Status)
	}
	var doc *types.SourceDocument
	if exam.SourceDocumentID != nil {
		found, err := s.documents.GetByIDForUser(ctx, nil, *exam.SourceDocumentID, userID)
		if err != nil {
			return nil, err
		}
		doc = found
	} else if strings.TrimSpace(input.Text) == "" {
		return nil, apperr.Validation("exam has no source document; regeneration requires text")
	}

	if err := s.exams.ReplaceQuestions(ctx, nil, exam.ID, nil); err != nil {
		return nil, err
	}
	if err := s.exams.UpdateFields(ctx, nil, exam.ID, map[string]any{
		"error_message": "",
		"score":         nil,
	}); err != nil {
		return nil, err
	}

	return s.run(ctx, userID, exam, doc, input)
}

func (s *ExamService) run(ctx context.Context, userID uuid.UUID, exam *types.Exam, doc *types.SourceDocument, input CreateExamInput) (*types.Exam, error) {
	if err := s.exams.UpdateFields(ctx, nil, exam.ID, map[string]any{
		"status": types.ExamStatusGenerating,
	}); err != nil {
		return nil, err
	}

	if err := s.generate(ctx, exam, doc, input); err != nil {
		s.log.Error("Exam generation failed", "exam_id", exam.ID, "error", err)
		s.fail(ctx, exam.ID, err)
	}
	return s.exams.GetByIDForUser(ctx, nil, exam.ID, userID)
}

func (s *ExamService) generate(ctx context.Context, exam *types.Exam, doc *types.SourceDocument, input CreateExamInput) error {
	var text string
	if doc != nil {
		resolved, err := s.extraction.ResolveContent(ctx, doc)
		if err != nil {
			return err
		}
		if strings.TrimSpace(resolved) == "" {
			return apperr.Validation("document %q has no extractable content", doc.OriginalName)
		}
		text = resolved
	} else {
		text = input.Text
	}
	text = TruncateForPrompt(text)

	count := input.QuestionCount
	if count <= 0 {
		count = 10
	}
	questions, err := guard.WithTimeout(ctx, "exam_questions", s.generateTimeout, func(ctx context.Context) ([]GeneratedQuestion, error) {
		return s.generation.GenerateQuestions(ctx, input.Model, text, count, input.QuestionTypes, input.Difficulty)
	})
	if err != nil {
		return err
	}

	rows := make([]*types.ExamQuestion, 0, len(questions))
	for i, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return apperr.Parse(err, "encoding question options")
		}
		rows = append(rows, &types.ExamQuestion{
			ExamID:             exam.ID,
			Position:           i,
			Question:           q.Question,
			Options:            datatypes.JSON(options),
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			Explanation:        q.Explanation,
			Type:               q.Type,
		})
	}
	if err := s.exams.ReplaceQuestions(ctx, nil, exam.ID, rows); err != nil {
		return err
	}
	return s.exams.UpdateFields(ctx, nil, exam.ID, map[string]any{
		"status":        types.ExamStatusReady,
		"error_message": "",
	})
}

func (s *ExamService) fail(ctx context.Context, examID uuid.UUID, cause error) {
	fields := map[string]any{
		"status":        types.ExamStatusError,
		"error_message": cause.Error(),
	}
	if err := s.exams.UpdateFields(ctx, nil, examID, fields); err != nil {
		s.log.Error("Failed to record exam error state", "exam_id", examID, "error", err)
	}
}

func (s *ExamService) Get(ctx context.Context, userID, examID uuid.UUID) (*types.Exam, error) {
	return s.exams.GetByIDForUser(ctx, nil, examID, userID)
}

// SubmitAttempt grades the submitted answers, records the attempt, and
// moves the exam to completed with the attempt's score. Feedback generation
// is best effort: a model failure there never fails the submission.
func (s *ExamService) SubmitAttempt(ctx context.Context, userID, examID uuid.UUID, input SubmitAttemptInput) (*types.ExamAttempt, error) {
	exam, err := s.exams.GetByIDForUser(ctx, nil, examID, userID)
	if err != nil {
		return nil, err
	}
	if !exam.Status.CanTransitionTo(types.ExamStatusCompleted) {
		return nil, apperr.Validation("exam in status %q cannot accept attempts", exam.Status)
	}

	result := s.grading.Grade(exam.Questions, input.Answers)

	feedback := ""
	if s.grading != nil && result.Total > 0 {
		fb, err := guard.WithTimeout(ctx, "attempt_feedback", s.feedbackTimeout, func(ctx context.Context) (string, error) {
			return s.grading.GenerateFeedback(ctx, input.FeedbackModel, exam.Title, result)
		})
		if err != nil {
			s.log.Warn("Feedback generation failed", "exam_id", exam.ID, "error", err)
		} else {
			feedback = fb
		}
	}

	answersJSON, err := json.Marshal(input.Answers)
	if err != nil {
		return nil, apperr.Parse(err, "encoding submitted answers")
	}
	attempt, err := s.exams.CreateAttempt(ctx, nil, &types.ExamAttempt{
		ExamID:           exam.ID,
		UserID:           userID,
		Answers:          datatypes.JSON(answersJSON),
		Score:            result.Score,
		TimeSpentSeconds: input.TimeSpentSeconds,
		FeedbackText:     feedback,
	})
	if err != nil {
		return nil, err
	}

	if err := s.exams.UpdateFields(ctx, nil, exam.ID, map[string]any{
		"status": types.ExamStatusCompleted,
		"score":  result.Score,
	}); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *ExamService) ListAttempts(ctx context.Context, userID, examID uuid.UUID) ([]*types.ExamAttempt, error) {
	if _, err := s.exams.GetByIDForUser(ctx, nil, examID, userID); err != nil {
		return nil, err
	}
	return s.exams.ListAttempts(ctx, nil, examID, userID)
}

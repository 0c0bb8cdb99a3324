package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
	"github.com/studyforge/studyforge-backend/internal/pkg/guard"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/repos"
	"github.com/studyforge/studyforge-backend/internal/types"
	"gorm.io/gorm"
)

type CreateAssignmentInput struct {
	Title         string
	Instructions  string
	AttachmentIDs []uuid.UUID
	Model         ModelSelection
}

type AssignmentService struct {
	db              *gorm.DB
	log             *logger.Logger
	assignments     repos.AssignmentRepo
	documents       repos.DocumentRepo
	extraction      *ExtractionService
	generation      *GenerationService
	generateTimeout time.Duration
}

func NewAssignmentService(
	db *gorm.DB,
	log *logger.Logger,
	assignments repos.AssignmentRepo,
	documents repos.DocumentRepo,
	extraction *ExtractionService,
	generation *GenerationService,
	generateTimeout time.Duration,
) *AssignmentService {
	return &AssignmentService{
		db:              db,
		log:             log.With("service", "AssignmentService"),
		assignments:     assignments,
		documents:       documents,
		extraction:      extraction,
		generation:      generation,
		generateTimeout: generateTimeout,
	}
}

// orderByRequestedIDs restores the caller's attachment order. A WHERE id IN
// query returns rows in whatever order the driver picked.
func orderByRequestedIDs(ids []uuid.UUID, docs []*types.SourceDocument) []*types.SourceDocument {
	byID := make(map[uuid.UUID]*types.SourceDocument, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}
	ordered := make([]*types.SourceDocument, 0, len(ids))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			ordered = append(ordered, doc)
		}
	}
	return ordered
}

func (s *AssignmentService) Create(ctx context.Context, userID uuid.UUID, input CreateAssignmentInput) (*types.Assignment, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperr.Validation("assignment title is required")
	}

	var docs []*types.SourceDocument
	if len(input.AttachmentIDs) > 0 {
		found, err := s.documents.GetByIDsForUser(ctx, nil, input.AttachmentIDs, userID)
		if err != nil {
			return nil, err
		}
		if len(found) != len(input.AttachmentIDs) {
			return nil, apperr.NotFound("one or more attached documents not found")
		}
		docs = orderByRequestedIDs(input.AttachmentIDs, found)
	}

	assignment, err := s.assignments.Create(ctx, nil, &types.Assignment{
		UserID:       userID,
		Title:        input.Title,
		Instructions: input.Instructions,
		Status:       types.AssignmentStatusProcessing,
	})
	if err != nil {
		return nil, err
	}
	if len(input.AttachmentIDs) > 0 {
		if err := s.documents.AttachToAssignment(ctx, nil, input.AttachmentIDs, assignment.ID); err != nil {
			return nil, err
		}
	}

	return s.run(ctx, userID, assignment, docs, input)
}

func (s *AssignmentService) Retry(ctx context.Context, userID, assignmentID uuid.UUID, model ModelSelection) (*types.Assignment, error) {
	assignment, err := s.assignments.GetByIDForUser(ctx, nil, assignmentID, userID)
	if err != nil {
		return nil, err
	}
	if !assignment.Status.CanTransitionTo(types.AssignmentStatusProcessing) {
		return nil, apperr.Validation("assignment in status %q cannot be regenerated", assignment.Status)
	}
	if err := s.assignments.UpdateFields(ctx, nil, assignment.ID, map[string]any{
		"status":        types.AssignmentStatusProcessing,
		"error_message": "",
		"solution_text": "",
	}); err != nil {
		return nil, err
	}

	input := CreateAssignmentInput{
		Title:        assignment.Title,
		Instructions: assignment.Instructions,
		Model:        model,
	}
	return s.run(ctx, userID, assignment, assignment.Attachments, input)
}

func (s *AssignmentService) run(ctx context.Context, userID uuid.UUID, assignment *types.Assignment, docs []*types.SourceDocument, input CreateAssignmentInput) (*types.Assignment, error) {
	if err := s.solve(ctx, assignment, docs, input); err != nil {
		s.log.Error("Assignment solution failed", "assignment_id", assignment.ID, "error", err)
		s.fail(ctx, assignment.ID, err)
	}
	return s.assignments.GetByIDForUser(ctx, nil, assignment.ID, userID)
}

func (s *AssignmentService) solve(ctx context.Context, assignment *types.Assignment, docs []*types.SourceDocument, input CreateAssignmentInput) error {
	blocks, err := s.extraction.ResolveAll(ctx, docs)
	if err != nil {
		return err
	}

	solution, err := guard.WithTimeout(ctx, "assignment_solution", s.generateTimeout, func(ctx context.Context) (string, error) {
		return s.generation.GenerateSolution(ctx, input.Model, input.Title, input.Instructions, blocks)
	})
	if err != nil {
		return err
	}

	return s.assignments.UpdateFields(ctx, nil, assignment.ID, map[string]any{
		"solution_text": solution,
		"status":        types.AssignmentStatusCompleted,
		"error_message": "",
	})
}

func (s *AssignmentService) fail(ctx context.Context, assignmentID uuid.UUID, cause error) {
	fields := map[string]any{
		"status":        types.AssignmentStatusError,
		"error_message": cause.Error(),
	}
	if err := s.assignments.UpdateFields(ctx, nil, assignmentID, fields); err != nil {
		s.log.Error("Failed to record assignment error state", "assignment_id", assignmentID, "error", err)
	}
}

func (s *AssignmentService) Get(ctx context.Context, userID, assignmentID uuid.UUID) (*types.Assignment, error) {
	return s.assignments.GetByIDForUser(ctx, nil, assignmentID, userID)
}

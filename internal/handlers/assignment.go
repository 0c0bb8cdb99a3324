package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
	"github.com/studyforge/studyforge-backend/internal/pkg/ctxutil"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/services"
)

type AssignmentHandler struct {
	log           *logger.Logger
	assignmentSvc *services.AssignmentService
}

func NewAssignmentHandler(log *logger.Logger, assignmentSvc *services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{
		log:           log.With("handler", "AssignmentHandler"),
		assignmentSvc: assignmentSvc,
	}
}

type createAssignmentRequest struct {
	Title         string   `json:"title" binding:"required"`
	Instructions  string   `json:"instructions"`
	AttachmentIDs []string `json:"attachment_ids"`
	Model         string   `json:"model"`
}

// POST /api/assignments
// Solve an assignment from its instructions and optional attachments.
func (h *AssignmentHandler) Create(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	attachmentIDs := make([]uuid.UUID, 0, len(req.AttachmentIDs))
	for _, raw := range req.AttachmentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondAppError(c, apperr.Validation("invalid attachment id %q", raw))
			return
		}
		attachmentIDs = append(attachmentIDs, id)
	}
	assignment, err := h.assignmentSvc.Create(c.Request.Context(), rd.UserID, services.CreateAssignmentInput{
		Title:         req.Title,
		Instructions:  req.Instructions,
		AttachmentIDs: attachmentIDs,
		Model:         modelSelection(c, req.Model),
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, assignment)
}

// GET /api/assignments/:id
func (h *AssignmentHandler) Get(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondAppError(c, apperr.Validation("invalid assignment id"))
		return
	}
	assignment, err := h.assignmentSvc.Get(c.Request.Context(), rd.UserID, id)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, assignment)
}

// POST /api/assignments/:id/retry
func (h *AssignmentHandler) Retry(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondAppError(c, apperr.Validation("invalid assignment id"))
		return
	}
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	assignment, err := h.assignmentSvc.Retry(c.Request.Context(), rd.UserID, id, modelSelection(c, req.Model))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, assignment)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
	"github.com/studyforge/studyforge-backend/internal/pkg/ctxutil"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/services"
	"github.com/studyforge/studyforge-backend/internal/types"
)

type DocumentHandler struct {
	log    *logger.Logger
	docSvc *services.DocumentService
}

func NewDocumentHandler(log *logger.Logger, docSvc *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		log:    log.With("handler", "DocumentHandler"),
		docSvc: docSvc,
	}
}

type registerDocumentRequest struct {
	OriginalName string `json:"original_name" binding:"required"`
	LocationRef  string `json:"location_ref" binding:"required"`
	MediaKind    string `json:"media_kind"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
}

// POST /api/documents
// Register an uploaded document by reference.
func (h *DocumentHandler) Register(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	var req registerDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	doc, err := h.docSvc.Register(c.Request.Context(), rd.UserID, services.RegisterDocumentInput{
		OriginalName: req.OriginalName,
		LocationRef:  req.LocationRef,
		MediaKind:    types.MediaKind(req.MediaKind),
		MimeType:     req.MimeType,
		SizeBytes:    req.SizeBytes,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, doc)
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondAppError(c, apperr.Validation("invalid document id"))
		return
	}
	doc, err := h.docSvc.Get(c.Request.Context(), rd.UserID, id)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, doc)
}

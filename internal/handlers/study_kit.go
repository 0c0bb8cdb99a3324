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

type StudyKitHandler struct {
	log    *logger.Logger
	kitSvc *services.StudyKitService
}

func NewStudyKitHandler(log *logger.Logger, kitSvc *services.StudyKitService) *StudyKitHandler {
	return &StudyKitHandler{
		log:    log.With("handler", "StudyKitHandler"),
		kitSvc: kitSvc,
	}
}

type createStudyKitRequest struct {
	SourceDocumentID string   `json:"source_document_id" binding:"required"`
	Model            string   `json:"model"`
	SummaryLength    string   `json:"summary_length"`
	FlashcardCount   int      `json:"flashcard_count"`
	QuestionCount    int      `json:"question_count"`
	QuestionTypes    []string `json:"question_types"`
	Difficulty       string   `json:"difficulty"`
}

func (req *createStudyKitRequest) toInput(model services.ModelSelection) (services.CreateStudyKitInput, error) {
	docID, err := uuid.Parse(req.SourceDocumentID)
	if err != nil {
		return services.CreateStudyKitInput{}, apperr.Validation("invalid source document id")
	}
	return services.CreateStudyKitInput{
		SourceDocumentID: docID,
		Model:            model,
		SummaryLength:    services.SummaryLength(req.SummaryLength),
		FlashcardCount:   req.FlashcardCount,
		QuestionCount:    req.QuestionCount,
		QuestionTypes:    questionTypes(req.QuestionTypes),
		Difficulty:       req.Difficulty,
	}, nil
}

// modelSelection pairs the requested alias with the caller's allowlist from
// the verified token.
func modelSelection(c *gin.Context, alias string) services.ModelSelection {
	if alias == "" {
		alias = services.AliasAuto
	}
	sel := services.ModelSelection{Alias: alias}
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		sel.Enabled = rd.EnabledModels
	}
	return sel
}

func questionTypes(raw []string) []types.QuestionType {
	out := make([]types.QuestionType, 0, len(raw))
	for _, t := range raw {
		out = append(out, types.QuestionType(t))
	}
	return out
}

// POST /api/study-kits
// Generate a study kit from a registered document. The call is synchronous
// and returns the kit in its terminal state.
func (h *StudyKitHandler) Create(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	var req createStudyKitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	input, err := req.toInput(modelSelection(c, req.Model))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	kit, err := h.kitSvc.Create(c.Request.Context(), rd.UserID, input)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, kit)
}

// GET /api/study-kits/:id
func (h *StudyKitHandler) Get(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondAppError(c, apperr.Validation("invalid study kit id"))
		return
	}
	kit, err := h.kitSvc.Get(c.Request.Context(), rd.UserID, id)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, kit)
}

// POST /api/study-kits/:id/retry
// Regenerate a kit that finished in ready or error.
func (h *StudyKitHandler) Retry(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondAppError(c, apperr.Validation("invalid study kit id"))
		return
	}
	var req createStudyKitRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	input := services.CreateStudyKitInput{
		Model:          modelSelection(c, req.Model),
		SummaryLength:  services.SummaryLength(req.SummaryLength),
		FlashcardCount: req.FlashcardCount,
		QuestionCount:  req.QuestionCount,
		QuestionTypes:  questionTypes(req.QuestionTypes),
		Difficulty:     req.Difficulty,
	}
	kit, err := h.kitSvc.Retry(c.Request.Context(), rd.UserID, id, input)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, kit)
}

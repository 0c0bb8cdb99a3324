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

type ExamHandler struct {
	log     *logger.Logger
	examSvc *services.ExamService
}

func NewExamHandler(log *logger.Logger, examSvc *services.ExamService) *ExamHandler {
	return &ExamHandler{
		log:     log.With("handler", "ExamHandler"),
		examSvc: examSvc,
	}
}

type createExamRequest struct {
	SourceDocumentID string   `json:"source_document_id"`
	Text             string   `json:"text"`
	Title            string   `json:"title"`
	Subject          string   `json:"subject"`
	Model            string   `json:"model"`
	QuestionCount    int      `json:"question_count"`
	QuestionTypes    []string `json:"question_types"`
	Difficulty       string   `json:"difficulty"`
	DurationMinutes  int      `json:"duration_minutes"`
}

func (req *createExamRequest) toInput(model services.ModelSelection) (services.CreateExamInput, error) {
	input := services.CreateExamInput{
		Text:            req.Text,
		Title:           req.Title,
		Subject:         req.Subject,
		Model:           model,
		QuestionCount:   req.QuestionCount,
		QuestionTypes:   questionTypes(req.QuestionTypes),
		Difficulty:      req.Difficulty,
		DurationMinutes: req.DurationMinutes,
	}
	if req.SourceDocumentID != "" {
		docID, err := uuid.Parse(req.SourceDocumentID)
		if err != nil {
			return input, apperr.Validation("invalid source document id")
		}
		input.SourceDocumentID = docID
	}
	return input, nil
}

// POST /api/exams
// Generate an exam from a registered document or a pasted block of text.
func (h *ExamHandler) Create(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	var req createExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	input, err := req.toInput(modelSelection(c, req.Model))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	exam, err := h.examSvc.Create(c.Request.Context(), rd.UserID, input)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, exam)
}

// GET /api/exams/:id
func (h *ExamHandler) Get(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondAppError(c, apperr.Validation("invalid exam id"))
		return
	}
	exam, err := h.examSvc.Get(c.Request.Context(), rd.UserID, id)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, exam)
}

// POST /api/exams/:id/retry
func (h *ExamHandler) Retry(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondAppError(c, apperr.Validation("invalid exam id"))
		return
	}
	var req createExamRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	input, err := req.toInput(modelSelection(c, req.Model))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	exam, err := h.examSvc.Retry(c.Request.Context(), rd.UserID, id, input)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, exam)
}

type submitAttemptRequest struct {
	Answers          []services.AnswerSubmission `json:"answers"`
	TimeSpentSeconds int                         `json:"time_spent_seconds"`
	FeedbackModel    string                      `json:"feedback_model"`
}

// POST /api/exams/:id/attempts
// Grade a submitted answer set and record the attempt.
func (h *ExamHandler) SubmitAttempt(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondAppError(c, apperr.Validation("invalid exam id"))
		return
	}
	var req submitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	attempt, err := h.examSvc.SubmitAttempt(c.Request.Context(), rd.UserID, id, services.SubmitAttemptInput{
		Answers:          req.Answers,
		TimeSpentSeconds: req.TimeSpentSeconds,
		FeedbackModel:    modelSelection(c, req.FeedbackModel),
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, attempt)
}

// GET /api/exams/:id/attempts
func (h *ExamHandler) ListAttempts(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondAppError(c, apperr.Validation("invalid exam id"))
		return
	}
	attempts, err := h.examSvc.ListAttempts(c.Request.Context(), rd.UserID, id)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, attempts)
}

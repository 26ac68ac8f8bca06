package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"intervia/internal/features"
	"intervia/internal/repo"
	sv "intervia/internal/service"
	ext "intervia/internal/utils/extractor"
)

// InterviewHandler is the HTTP boundary of the interview service. It maps
// wire shapes to the features layer and domain errors to HTTP codes.
type InterviewHandler struct {
	interviews features.IInterviews
	extractor  ext.Extractor
	logger     *zap.Logger
}

func NewInterviewHandler(interviews features.IInterviews, extractor ext.Extractor, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{
		interviews: interviews,
		extractor:  extractor,
		logger:     logger,
	}
}

func (h *InterviewHandler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.POST("/interviews", h.Create)
	v1.GET("/interviews", h.List)
	v1.GET("/interviews/stats", h.Stats)
	v1.GET("/interviews/by-call/:callId", h.GetByCall)
	v1.GET("/interviews/:id", h.Get)
	v1.POST("/interviews/:id/start", h.Start)
	v1.POST("/interviews/:id/answers", h.SubmitAnswer)
	v1.POST("/interviews/:id/complete", h.Complete)
	v1.POST("/interviews/:id/report", h.CompleteWithReport)
	v1.POST("/interviews/:id/cancel", h.Cancel)
	v1.POST("/interviews/:id/transcript", h.AppendTranscript)
}

func httpStatus(err error) int {
	switch status.Code(err) {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *InterviewHandler) abort(c *gin.Context, err error) {
	c.JSON(httpStatus(err), gin.H{"error": status.Convert(err).Message()})
}

// callerID resolves the acting user. Internal callers (service token) may
// act without one; everyone else must carry the identity header.
func (h *InterviewHandler) callerID(c *gin.Context) (string, bool) {
	userID := h.extractor.GetUserID(c.Request.Header)
	if userID != "" {
		return userID, true
	}
	if h.extractor.IsInternal(c.Request.Header) {
		return "", true
	}
	return "", false
}

func toWire(iv *repo.Interview) *sv.Interview {
	wire := &sv.Interview{
		ID:            iv.ID,
		UserID:        iv.UserID,
		Title:         iv.Title,
		Field:         iv.Field,
		TechStack:     iv.TechStack,
		Difficulty:    iv.Difficulty,
		QuestionIDs:   iv.QuestionIDs,
		QuestionCount: iv.QuestionCount,
		Status:        string(iv.Status),
		OverallScore:  iv.OverallScore,
		Feedback:      iv.Feedback,
		CreatedAt:     iv.CreatedAt.Format(time.RFC3339),
	}
	if iv.StartedAt != nil {
		wire.StartedAt = iv.StartedAt.Format(time.RFC3339)
	}
	if iv.CompletedAt != nil {
		wire.CompletedAt = iv.CompletedAt.Format(time.RFC3339)
	}
	for _, a := range iv.Answers {
		wire.Answers = append(wire.Answers, sv.Answer{
			QuestionID:    a.QuestionID,
			QuestionTitle: a.QuestionTitle,
			AnswerText:    a.AnswerText,
			Score:         a.Score,
			Feedback:      a.Feedback,
			Strengths:     a.Strengths,
			Improvements:  a.Improvements,
		})
	}
	if iv.Report != nil {
		wire.Report = &sv.Report{
			TechnicalScore:     iv.Report.TechnicalScore,
			CommunicationScore: iv.Report.CommunicationScore,
			DictionScore:       iv.Report.DictionScore,
			ConfidenceScore:    iv.Report.ConfidenceScore,
			OverallScore:       iv.Report.OverallScore,
			Summary:            iv.Report.Summary,
			Recommendations:    iv.Report.Recommendations,
		}
	}
	return wire
}

func (h *InterviewHandler) Create(c *gin.Context) {
	var req sv.CreateInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" {
		req.UserID = h.extractor.GetUserID(c.Request.Header)
	}

	interview, err := h.interviews.Create(c.Request.Context(), features.CreateParams{
		UserID:         req.UserID,
		Field:          req.Field,
		TechStack:      req.TechStack,
		Difficulty:     req.Difficulty,
		Title:          req.Title,
		QuestionCount:  req.QuestionCount,
		DurationMin:    req.DurationMinutes,
		ExternalCallID: req.ExternalCallID,
	})
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, toWire(interview))
}

func (h *InterviewHandler) Get(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	// Internal callers may scope the read to a user they act for.
	if userID == "" {
		userID = c.Query("userId")
	}

	interview, err := h.interviews.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toWire(interview))
}

func (h *InterviewHandler) GetByCall(c *gin.Context) {
	if !h.extractor.IsInternal(c.Request.Header) {
		c.JSON(http.StatusForbidden, gin.H{"error": "internal callers only"})
		return
	}
	interview, err := h.interviews.GetByExternalCallID(c.Request.Context(), c.Param("callId"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toWire(interview))
}

func (h *InterviewHandler) List(c *gin.Context) {
	userID := h.extractor.GetUserID(c.Request.Header)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	var query struct {
		Page   int32  `form:"page"`
		Limit  int32  `form:"limit"`
		Status string `form:"status"`
		Sort   string `form:"sort"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	interviews, total, pages, err := h.interviews.List(c.Request.Context(), userID, query.Page, query.Limit, query.Status, query.Sort)
	if err != nil {
		h.abort(c, err)
		return
	}

	items := make([]*sv.Interview, 0, len(interviews))
	for _, iv := range interviews {
		items = append(items, toWire(iv))
	}
	c.JSON(http.StatusOK, gin.H{
		"interviews": items,
		"total":      total,
		"totalPages": pages,
	})
}

func (h *InterviewHandler) Stats(c *gin.Context) {
	userID := h.extractor.GetUserID(c.Request.Header)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	stats, err := h.interviews.Stats(c.Request.Context(), userID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *InterviewHandler) Start(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	var req sv.StartInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	interview, err := h.interviews.Start(c.Request.Context(), userID, c.Param("id"), req.QuestionIDs)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toWire(interview))
}

func (h *InterviewHandler) SubmitAnswer(c *gin.Context) {
	var req sv.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var interview *repo.Interview
	var err error
	if userID := h.extractor.GetUserID(c.Request.Header); userID != "" {
		interview, err = h.interviews.SubmitAnswer(c.Request.Context(), userID, c.Param("id"), req.QuestionID, req.QuestionTitle, req.AnswerText)
	} else if h.extractor.IsInternal(c.Request.Header) {
		interview, err = h.interviews.SubmitAnswerInternal(c.Request.Context(), c.Param("id"), req.QuestionID, req.QuestionTitle, req.AnswerText)
	} else {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toWire(interview))
}

func (h *InterviewHandler) Complete(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	interview, err := h.interviews.Complete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toWire(interview))
}

func (h *InterviewHandler) CompleteWithReport(c *gin.Context) {
	if !h.extractor.IsInternal(c.Request.Header) {
		c.JSON(http.StatusForbidden, gin.H{"error": "internal callers only"})
		return
	}

	var req sv.CompleteWithReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := &repo.Report{
		TechnicalScore:     req.Report.TechnicalScore,
		CommunicationScore: req.Report.CommunicationScore,
		DictionScore:       req.Report.DictionScore,
		ConfidenceScore:    req.Report.ConfidenceScore,
		OverallScore:       req.Report.OverallScore,
		Summary:            req.Report.Summary,
		Recommendations:    req.Report.Recommendations,
	}
	interview, err := h.interviews.CompleteWithReport(c.Request.Context(), c.Param("id"), report, req.OverallFeedback)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toWire(interview))
}

func (h *InterviewHandler) Cancel(c *gin.Context) {
	userID, ok := h.callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}
	interview, err := h.interviews.Cancel(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, toWire(interview))
}

func (h *InterviewHandler) AppendTranscript(c *gin.Context) {
	if !h.extractor.IsInternal(c.Request.Header) {
		c.JSON(http.StatusForbidden, gin.H{"error": "internal callers only"})
		return
	}

	var req sv.TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.interviews.AppendTranscript(c.Request.Context(), c.Param("id"), req.Role, req.Text); err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

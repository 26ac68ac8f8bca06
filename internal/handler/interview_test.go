package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"intervia/internal/features"
	"intervia/internal/repo"
	ext "intervia/internal/utils/extractor"
)

// fakeFeatures serves a single canned interview and records how it was asked.
type fakeFeatures struct {
	interview *repo.Interview
	err       error

	lastUserID   string
	lastReport   *repo.Report
	lastFeedback string
	internalSub  bool
}

func (f *fakeFeatures) answer() (*repo.Interview, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.interview, nil
}

func (f *fakeFeatures) Create(ctx context.Context, params features.CreateParams) (*repo.Interview, error) {
	f.lastUserID = params.UserID
	return f.answer()
}

func (f *fakeFeatures) Get(ctx context.Context, userID, id string) (*repo.Interview, error) {
	f.lastUserID = userID
	return f.answer()
}

func (f *fakeFeatures) GetByExternalCallID(ctx context.Context, callID string) (*repo.Interview, error) {
	return f.answer()
}

func (f *fakeFeatures) List(ctx context.Context, userID string, page, limit int32, statusFilter, sortExpr string) ([]*repo.Interview, int32, int32, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, 0, 0, f.err
	}
	return []*repo.Interview{f.interview}, 1, 1, nil
}

func (f *fakeFeatures) Start(ctx context.Context, userID, id string, questionIDs []string) (*repo.Interview, error) {
	f.lastUserID = userID
	return f.answer()
}

func (f *fakeFeatures) SubmitAnswer(ctx context.Context, userID, id, questionID, questionTitle, answerText string) (*repo.Interview, error) {
	f.lastUserID = userID
	return f.answer()
}

func (f *fakeFeatures) SubmitAnswerInternal(ctx context.Context, id, questionID, questionTitle, answerText string) (*repo.Interview, error) {
	f.internalSub = true
	return f.answer()
}

func (f *fakeFeatures) Complete(ctx context.Context, userID, id string) (*repo.Interview, error) {
	f.lastUserID = userID
	return f.answer()
}

func (f *fakeFeatures) CompleteWithReport(ctx context.Context, id string, report *repo.Report, overallFeedback string) (*repo.Interview, error) {
	f.lastReport = report
	f.lastFeedback = overallFeedback
	return f.answer()
}

func (f *fakeFeatures) Cancel(ctx context.Context, userID, id string) (*repo.Interview, error) {
	f.lastUserID = userID
	return f.answer()
}

func (f *fakeFeatures) UpdateAnswerWithAIFeedback(ctx context.Context, id, questionID string, feedback features.AnswerFeedback) error {
	return f.err
}

func (f *fakeFeatures) AppendTranscript(ctx context.Context, id, role, text string) error {
	return f.err
}

func (f *fakeFeatures) Stats(ctx context.Context, userID string) (*repo.Stats, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &repo.Stats{Total: 3, Completed: 2}, nil
}

const testServiceToken = "internal-secret"

func newAPIServer(t *testing.T, f *fakeFeatures) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	NewInterviewHandler(f, ext.New(testServiceToken), zap.NewNop()).Register(r)
	return r
}

func apiRequest(t *testing.T, r *gin.Engine, method, path string, headers map[string]string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func cannedInterview() *repo.Interview {
	return &repo.Interview{
		ID:        "iv-1",
		UserID:    "user-1",
		Field:     "backend",
		Status:    repo.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func TestHandler_GetRequiresIdentity(t *testing.T) {
	f := &fakeFeatures{interview: cannedInterview()}
	r := newAPIServer(t, f)

	w := apiRequest(t, r, http.MethodGet, "/v1/interviews/iv-1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = apiRequest(t, r, http.MethodGet, "/v1/interviews/iv-1", map[string]string{ext.XUserID: "user-1"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", f.lastUserID)
}

func TestHandler_ServiceTokenActsWithoutUser(t *testing.T) {
	f := &fakeFeatures{interview: cannedInterview()}
	r := newAPIServer(t, f)

	w := apiRequest(t, r, http.MethodGet, "/v1/interviews/iv-1", map[string]string{ext.XServiceToken: testServiceToken}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", f.lastUserID)

	// A wrong token is not an internal caller.
	w = apiRequest(t, r, http.MethodGet, "/v1/interviews/iv-1", map[string]string{ext.XServiceToken: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_InternalOnlyRoutes(t *testing.T) {
	f := &fakeFeatures{interview: cannedInterview()}
	r := newAPIServer(t, f)

	// Even a valid user identity is not enough for internal routes.
	userHeaders := map[string]string{ext.XUserID: "user-1"}
	w := apiRequest(t, r, http.MethodGet, "/v1/interviews/by-call/call-1", userHeaders, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = apiRequest(t, r, http.MethodPost, "/v1/interviews/iv-1/report", userHeaders, map[string]interface{}{
		"report": map[string]interface{}{"overallScore": 70},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	internalHeaders := map[string]string{ext.XServiceToken: testServiceToken}
	w = apiRequest(t, r, http.MethodGet, "/v1/interviews/by-call/call-1", internalHeaders, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = apiRequest(t, r, http.MethodPost, "/v1/interviews/iv-1/report", internalHeaders, map[string]interface{}{
		"report":          map[string]interface{}{"overallScore": 70, "summary": "özet"},
		"overallFeedback": "geri bildirim",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, f.lastReport)
	assert.Equal(t, int32(70), f.lastReport.OverallScore)
	assert.Equal(t, "geri bildirim", f.lastFeedback)
}

func TestHandler_SubmitAnswerRoutesInternalVariant(t *testing.T) {
	f := &fakeFeatures{interview: cannedInterview()}
	r := newAPIServer(t, f)

	payload := map[string]string{"questionId": "q1", "questionTitle": "Soru", "answerText": "cevap"}

	w := apiRequest(t, r, http.MethodPost, "/v1/interviews/iv-1/answers", map[string]string{ext.XServiceToken: testServiceToken}, payload)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.internalSub)

	w = apiRequest(t, r, http.MethodPost, "/v1/interviews/iv-1/answers", nil, payload)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_ErrorCodeMapping(t *testing.T) {
	cases := []struct {
		code codes.Code
		want int
	}{
		{codes.NotFound, http.StatusNotFound},
		{codes.PermissionDenied, http.StatusForbidden},
		{codes.InvalidArgument, http.StatusBadRequest},
		{codes.FailedPrecondition, http.StatusConflict},
		{codes.Unavailable, http.StatusServiceUnavailable},
		{codes.Internal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		f := &fakeFeatures{err: status.Error(tc.code, "boom")}
		r := newAPIServer(t, f)
		w := apiRequest(t, r, http.MethodGet, "/v1/interviews/iv-1", map[string]string{ext.XUserID: "user-1"}, nil)
		assert.Equal(t, tc.want, w.Code, "code %s", tc.code)
	}
}

func TestHandler_ListAndStatsRequireUserHeader(t *testing.T) {
	f := &fakeFeatures{interview: cannedInterview()}
	r := newAPIServer(t, f)

	// The service token does not substitute for a user on user-scoped reads.
	internalHeaders := map[string]string{ext.XServiceToken: testServiceToken}
	w := apiRequest(t, r, http.MethodGet, "/v1/interviews", internalHeaders, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = apiRequest(t, r, http.MethodGet, "/v1/interviews/stats", internalHeaders, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	userHeaders := map[string]string{ext.XUserID: "user-1"}
	w = apiRequest(t, r, http.MethodGet, "/v1/interviews?page=1&limit=10", userHeaders, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "interviews")
	assert.Contains(t, body, "total")
	assert.Contains(t, body, "totalPages")
}

func TestHandler_CreateFallsBackToHeaderUser(t *testing.T) {
	f := &fakeFeatures{interview: cannedInterview()}
	r := newAPIServer(t, f)

	w := apiRequest(t, r, http.MethodPost, "/v1/interviews", map[string]string{ext.XUserID: "user-7"}, map[string]interface{}{
		"field": "backend",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-7", f.lastUserID)
}

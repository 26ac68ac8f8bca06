package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"intervia/internal/utils/extractor"
)

// InterviewClient is the remote client for the interview service. All calls
// carry the service token: the voice flow has no verified caller identity.
type InterviewClient struct {
	client *http.Client
	logger *zap.Logger
}

// NewInterviewClient creates a new interview service HTTP client
func NewInterviewClient(logger *zap.Logger) *InterviewClient {
	timeout := viper.GetDuration("interview.timeout")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &InterviewClient{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (c *InterviewClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	url := viper.GetString("interview.url") + path

	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return status.Errorf(codes.Internal, "Failed to marshal request: %v", err)
		}
		reqBody = bytes.NewBuffer(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return status.Errorf(codes.Internal, "Failed to create HTTP request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(extractor.XServiceToken, viper.GetString("services.token"))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return status.Errorf(codes.Unavailable, "Failed to call interview service: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return status.Errorf(codes.Internal, "Failed to read response body: %v", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return status.Errorf(codes.NotFound, "interview service: %s", string(body))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return status.Errorf(codes.Internal, "Interview service returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return status.Errorf(codes.Internal, "Failed to unmarshal response JSON: %v", err)
		}
	}
	return nil
}

func (c *InterviewClient) Create(ctx context.Context, req *CreateInterviewRequest) (*Interview, error) {
	var interview Interview
	if err := c.do(ctx, http.MethodPost, "/v1/interviews", req, &interview); err != nil {
		return nil, err
	}
	return &interview, nil
}

// Get fetches an interview. An empty userID is the trusted-caller read: the
// service token authorizes skipping the ownership check.
func (c *InterviewClient) Get(ctx context.Context, interviewID, userID string) (*Interview, error) {
	path := fmt.Sprintf("/v1/interviews/%s", interviewID)
	if userID != "" {
		path = fmt.Sprintf("%s?userId=%s", path, userID)
	}
	var interview Interview
	if err := c.do(ctx, http.MethodGet, path, nil, &interview); err != nil {
		return nil, err
	}
	return &interview, nil
}

func (c *InterviewClient) GetByCall(ctx context.Context, callID string) (*Interview, error) {
	var interview Interview
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/interviews/by-call/%s", callID), nil, &interview); err != nil {
		return nil, err
	}
	return &interview, nil
}

func (c *InterviewClient) Start(ctx context.Context, interviewID string, questionIDs []string) (*Interview, error) {
	var interview Interview
	req := &StartInterviewRequest{QuestionIDs: questionIDs}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/interviews/%s/start", interviewID), req, &interview); err != nil {
		return nil, err
	}
	return &interview, nil
}

func (c *InterviewClient) SubmitAnswer(ctx context.Context, interviewID, questionID, questionTitle, answerText string) (*Interview, error) {
	var interview Interview
	req := &SubmitAnswerRequest{
		QuestionID:    questionID,
		QuestionTitle: questionTitle,
		AnswerText:    answerText,
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/interviews/%s/answers", interviewID), req, &interview); err != nil {
		return nil, err
	}
	return &interview, nil
}

func (c *InterviewClient) CompleteWithReport(ctx context.Context, interviewID string, report Report, overallFeedback string) error {
	req := &CompleteWithReportRequest{Report: report, OverallFeedback: overallFeedback}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/interviews/%s/report", interviewID), req, nil)
}

func (c *InterviewClient) AppendTranscript(ctx context.Context, interviewID, role, text string) error {
	req := &TranscriptRequest{Role: role, Text: text}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/interviews/%s/transcript", interviewID), req, nil)
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// QuestionClient talks to the question bank service.
type QuestionClient struct {
	client *http.Client
	logger *zap.Logger
}

// NewQuestionClient creates a new question bank HTTP client
func NewQuestionClient(logger *zap.Logger) *QuestionClient {
	timeout := viper.GetDuration("question.timeout")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QuestionClient{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// GetRandom requests a random sample filtered by category, difficulty and
// tags. The bank may return fewer than count.
func (c *QuestionClient) GetRandom(ctx context.Context, count int32, category, difficulty string, tags []string) ([]Question, error) {
	query := url.Values{}
	query.Set("count", strconv.Itoa(int(count)))
	if category != "" {
		query.Set("category", category)
	}
	if difficulty != "" {
		query.Set("difficulty", difficulty)
	}
	if len(tags) > 0 {
		query.Set("tags", strings.Join(tags, ","))
	}

	questionURL := viper.GetString("question.url") + "/v1/questions/random?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, questionURL, nil)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to create HTTP request: %v", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "Failed to call question service: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to read response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, status.Errorf(codes.Internal, "Question service returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Questions []Question `json:"questions"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to unmarshal response JSON: %v", err)
	}
	return result.Questions, nil
}

// Generate asks the bank to generate and persist questions for the given
// configuration, so a follow-up sample can find them.
func (c *QuestionClient) Generate(ctx context.Context, field string, techStack []string, difficulty string, count int32) error {
	payload, err := json.Marshal(map[string]interface{}{
		"field":      field,
		"techStack":  techStack,
		"difficulty": difficulty,
		"count":      count,
	})
	if err != nil {
		return status.Errorf(codes.Internal, "Failed to marshal request: %v", err)
	}

	questionURL := viper.GetString("question.url") + "/v1/questions/generate"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, questionURL, bytes.NewBuffer(payload))
	if err != nil {
		return status.Errorf(codes.Internal, "Failed to create HTTP request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return status.Errorf(codes.Unavailable, "Failed to call question service: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return status.Errorf(codes.Internal, "Failed to read response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return status.Errorf(codes.Internal, "Question service returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"intervia/internal/utils/aiparse"
)

// Engine is the black-box text-generation capability.
type Engine interface {
	GenerateQuestions(ctx context.Context, field string, techStack []string, difficulty string, count int32) ([]GeneratedQuestion, error)
	Evaluate(ctx context.Context, field string, techStack []string, answers []AnswerSubmission) (*EvaluationResult, error)
}

// HTTPEngine calls a chat-completions style inference endpoint and recovers
// structured data from the model's free-form output.
type HTTPEngine struct {
	client *http.Client
	logger *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewHTTPEngine creates the inference client, or the disabled stub when no
// API key is configured. Missing configuration disables evaluation at
// startup instead of failing per request.
func NewHTTPEngine(logger *zap.Logger) Engine {
	if viper.GetString("engine.api_key") == "" {
		logger.Warn("No text generation API key configured, evaluation disabled")
		return &disabledEngine{}
	}
	timeout := viper.GetDuration("engine.timeout")
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPEngine{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (e *HTTPEngine) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: viper.GetString("engine.model"),
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   2048,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", status.Errorf(codes.Internal, "Failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, viper.GetString("engine.url"), bytes.NewBuffer(payload))
	if err != nil {
		return "", status.Errorf(codes.Internal, "Failed to create HTTP request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+viper.GetString("engine.api_key"))

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", status.Errorf(codes.Unavailable, "Failed to call inference endpoint: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", status.Errorf(codes.Internal, "Failed to read response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", status.Errorf(codes.Internal, "Inference endpoint returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", status.Errorf(codes.Internal, "Failed to unmarshal response JSON: %v", err)
	}
	if chatResp.Error != nil {
		return "", status.Errorf(codes.Internal, "Inference error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", status.Error(codes.Internal, "Inference returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (e *HTTPEngine) GenerateQuestions(ctx context.Context, field string, techStack []string, difficulty string, count int32) ([]GeneratedQuestion, error) {
	prompt := fmt.Sprintf(`You are a technical interviewer. Generate %d interview questions for a %s position at %s difficulty.
Technologies: %s.
Respond with only a JSON object of the shape:
{"questions": [{"question": "...", "order": 1, "expectedKeyPoints": ["..."]}]}`,
		count, field, difficulty, strings.Join(techStack, ", "))

	text, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result struct {
		Questions []GeneratedQuestion `json:"questions"`
	}
	if err := aiparse.ExtractObject(text, &result); err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to parse generated questions: %v", err)
	}
	if len(result.Questions) == 0 {
		return nil, status.Error(codes.Internal, "No questions generated")
	}

	for i := range result.Questions {
		if result.Questions[i].Order == 0 {
			result.Questions[i].Order = int32(i + 1)
		}
	}
	return result.Questions, nil
}

// rawEvaluation mirrors the model output with float scores so out-of-range
// values survive unmarshaling and can be clamped.
type rawEvaluation struct {
	TechnicalScore      float64  `json:"technicalScore"`
	CommunicationScore  float64  `json:"communicationScore"`
	DictionScore        float64  `json:"dictionScore"`
	ConfidenceScore     float64  `json:"confidenceScore"`
	OverallScore        float64  `json:"overallScore"`
	Summary             string   `json:"summary"`
	Recommendations     []string `json:"recommendations"`
	QuestionEvaluations []struct {
		QuestionID   string   `json:"questionId"`
		Score        float64  `json:"score"`
		Feedback     string   `json:"feedback"`
		Strengths    []string `json:"strengths"`
		Improvements []string `json:"improvements"`
	} `json:"questionEvaluations"`
}

func (e *HTTPEngine) Evaluate(ctx context.Context, field string, techStack []string, answers []AnswerSubmission) (*EvaluationResult, error) {
	var sb strings.Builder
	for i, a := range answers {
		fmt.Fprintf(&sb, "Question %d (id=%s): %s\nAnswer: %s\n\n", i+1, a.QuestionID, a.Question, a.Answer)
	}

	prompt := fmt.Sprintf(`You are evaluating a mock technical interview for a %s position. Technologies: %s.
Score every dimension from 0 to 100.

%s
Respond with only a JSON object of the shape:
{"technicalScore": 0, "communicationScore": 0, "dictionScore": 0, "confidenceScore": 0, "overallScore": 0,
 "summary": "...", "recommendations": ["..."],
 "questionEvaluations": [{"questionId": "...", "score": 0, "feedback": "...", "strengths": ["..."], "improvements": ["..."]}]}`,
		field, strings.Join(techStack, ", "), sb.String())

	text, err := e.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var raw rawEvaluation
	if err := aiparse.ExtractObject(text, &raw); err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to parse evaluation: %v", err)
	}

	result := &EvaluationResult{
		TechnicalScore:     aiparse.ClampScore(raw.TechnicalScore),
		CommunicationScore: aiparse.ClampScore(raw.CommunicationScore),
		DictionScore:       aiparse.ClampScore(raw.DictionScore),
		ConfidenceScore:    aiparse.ClampScore(raw.ConfidenceScore),
		OverallScore:       aiparse.ClampScore(raw.OverallScore),
		Summary:            raw.Summary,
		Recommendations:    raw.Recommendations,
	}
	for _, qe := range raw.QuestionEvaluations {
		result.QuestionEvaluations = append(result.QuestionEvaluations, QuestionEvaluation{
			QuestionID:   qe.QuestionID,
			Score:        aiparse.ClampScore(qe.Score),
			Feedback:     qe.Feedback,
			Strengths:    qe.Strengths,
			Improvements: qe.Improvements,
		})
	}
	return result, nil
}

// disabledEngine is returned when inference is not configured.
type disabledEngine struct{}

func (d *disabledEngine) GenerateQuestions(ctx context.Context, field string, techStack []string, difficulty string, count int32) ([]GeneratedQuestion, error) {
	return nil, status.Error(codes.FailedPrecondition, "text generation is not configured")
}

func (d *disabledEngine) Evaluate(ctx context.Context, field string, techStack []string, answers []AnswerSubmission) (*EvaluationResult, error) {
	return nil, status.Error(codes.FailedPrecondition, "text generation is not configured")
}

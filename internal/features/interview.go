package features

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"intervia/internal/repo"
	"intervia/internal/utils/sse"
	"intervia/pkg/event"
	rabbit "intervia/pkg/rabbit/pkg"
)

const sourceService = "interview-service"

const defaultQuestionCount = 5

// IInterviews is the owner-service contract for the interview lifecycle.
type IInterviews interface {
	Create(ctx context.Context, params CreateParams) (*repo.Interview, error)
	Get(ctx context.Context, userID, id string) (*repo.Interview, error)
	GetByExternalCallID(ctx context.Context, callID string) (*repo.Interview, error)
	List(ctx context.Context, userID string, page, limit int32, statusFilter, sortExpr string) ([]*repo.Interview, int32, int32, error)
	Start(ctx context.Context, userID, id string, questionIDs []string) (*repo.Interview, error)
	SubmitAnswer(ctx context.Context, userID, id, questionID, questionTitle, answerText string) (*repo.Interview, error)
	SubmitAnswerInternal(ctx context.Context, id, questionID, questionTitle, answerText string) (*repo.Interview, error)
	Complete(ctx context.Context, userID, id string) (*repo.Interview, error)
	CompleteWithReport(ctx context.Context, id string, report *repo.Report, overallFeedback string) (*repo.Interview, error)
	Cancel(ctx context.Context, userID, id string) (*repo.Interview, error)
	UpdateAnswerWithAIFeedback(ctx context.Context, id, questionID string, feedback AnswerFeedback) error
	AppendTranscript(ctx context.Context, id, role, text string) error
	Stats(ctx context.Context, userID string) (*repo.Stats, error)
}

type CreateParams struct {
	UserID         string
	Field          string
	TechStack      []string
	Difficulty     string
	Title          string
	QuestionCount  int32
	DurationMin    int32
	ExternalCallID string
}

type AnswerFeedback struct {
	Score        int32
	Feedback     string
	Strengths    []string
	Improvements []string
}

// Interviews owns the interview state machine and emits lifecycle events.
type Interviews struct {
	repo     repo.IInterview
	rabbit   rabbit.Rabbit
	logger   *zap.Logger
	notifier *sse.Registry
}

func New(repository *repo.Repository, bus rabbit.Rabbit, notifier *sse.Registry, logger *zap.Logger) *Interviews {
	return &Interviews{
		repo:     repository.Interview,
		rabbit:   bus,
		logger:   logger,
		notifier: notifier,
	}
}

// publish is best-effort: a failed publish is logged and never fails the
// mutation that triggered it.
func (s *Interviews) publish(ctx context.Context, topic string, payload interface{}) {
	env, err := event.New(topic, sourceService, payload)
	if err != nil {
		s.logger.Error("Failed to build event envelope", zap.String("topic", topic), zap.Error(err))
		return
	}
	body, err := env.Encode()
	if err != nil {
		s.logger.Error("Failed to encode event", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := s.rabbit.Publish(ctx, topic, body); err != nil {
		s.logger.Error("Failed to publish event", zap.String("topic", topic), zap.Error(err))
	}
}

func (s *Interviews) Create(ctx context.Context, params CreateParams) (*repo.Interview, error) {
	if params.UserID == "" || params.Field == "" {
		return nil, status.Error(codes.InvalidArgument, "userId and field are required")
	}
	if params.QuestionCount <= 0 {
		params.QuestionCount = defaultQuestionCount
	}
	if params.Difficulty == "" {
		params.Difficulty = "intermediate"
	}

	interview := &repo.Interview{
		ID:              uuid.New().String(),
		UserID:          params.UserID,
		Title:           params.Title,
		Field:           params.Field,
		TechStack:       params.TechStack,
		Difficulty:      params.Difficulty,
		DurationMinutes: params.DurationMin,
		QuestionCount:   params.QuestionCount,
		Status:          repo.StatusPending,
		ExternalCallID:  params.ExternalCallID,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, interview); err != nil {
		s.logger.Error("Failed to create interview", zap.Error(err))
		return nil, status.Errorf(codes.Internal, "failed to create interview: %v", err)
	}
	s.logger.Info("Created interview",
		zap.String("interviewId", interview.ID),
		zap.String("userId", interview.UserID))

	s.publish(ctx, event.TopicInterviewCreated, event.InterviewCreated{
		InterviewID: interview.ID,
		UserID:      interview.UserID,
		Field:       interview.Field,
		TechStack:   interview.TechStack,
		Difficulty:  interview.Difficulty,
	})

	return interview, nil
}

// get loads the interview and enforces ownership. An empty userID means a
// trusted internal caller and skips the check; the HTTP boundary only maps
// to an empty userID after validating the service token.
func (s *Interviews) get(ctx context.Context, userID, id string) (*repo.Interview, error) {
	interview, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "interview not found: %v", err)
	}
	if userID != "" && interview.UserID != userID {
		return nil, status.Error(codes.PermissionDenied, "interview belongs to another user")
	}
	return interview, nil
}

func (s *Interviews) Get(ctx context.Context, userID, id string) (*repo.Interview, error) {
	return s.get(ctx, userID, id)
}

func (s *Interviews) GetByExternalCallID(ctx context.Context, callID string) (*repo.Interview, error) {
	interview, err := s.repo.GetByExternalCallID(ctx, callID)
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "no interview for call: %v", err)
	}
	return interview, nil
}

func (s *Interviews) List(ctx context.Context, userID string, page, limit int32, statusFilter, sortExpr string) ([]*repo.Interview, int32, int32, error) {
	interviews, total, pages, err := s.repo.List(ctx, userID, page, limit, repo.Status(statusFilter), sortExpr)
	if err != nil {
		s.logger.Error("Failed to list interviews", zap.String("userId", userID), zap.Error(err))
		return nil, 0, 0, status.Errorf(codes.Internal, "failed to list interviews: %v", err)
	}
	return interviews, total, pages, nil
}

func (s *Interviews) Start(ctx context.Context, userID, id string, questionIDs []string) (*repo.Interview, error) {
	interview, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	switch interview.Status {
	case repo.StatusInProgress:
		return nil, status.Error(codes.FailedPrecondition, "interview already started")
	case repo.StatusCompleted, repo.StatusCancelled:
		return nil, status.Error(codes.FailedPrecondition, "interview already completed")
	}

	now := time.Now().UTC()
	if err := s.repo.SetStarted(ctx, id, now, questionIDs); err != nil {
		s.logger.Error("Failed to start interview", zap.String("interviewId", id), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "failed to start interview: %v", err)
	}
	interview.Status = repo.StatusInProgress
	interview.StartedAt = &now
	if len(questionIDs) > 0 {
		interview.QuestionIDs = questionIDs
	}

	s.publish(ctx, event.TopicInterviewStarted, event.InterviewStarted{
		InterviewID: interview.ID,
		UserID:      interview.UserID,
		StartedAt:   now,
	})

	return interview, nil
}

func (s *Interviews) SubmitAnswer(ctx context.Context, userID, id, questionID, questionTitle, answerText string) (*repo.Interview, error) {
	interview, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.submitAnswer(ctx, interview, questionID, questionTitle, answerText)
}

// SubmitAnswerInternal performs the same mutation without the ownership check.
// Voice callbacks arrive without a verified caller identity.
func (s *Interviews) SubmitAnswerInternal(ctx context.Context, id, questionID, questionTitle, answerText string) (*repo.Interview, error) {
	interview, err := s.get(ctx, "", id)
	if err != nil {
		return nil, err
	}
	return s.submitAnswer(ctx, interview, questionID, questionTitle, answerText)
}

func (s *Interviews) submitAnswer(ctx context.Context, interview *repo.Interview, questionID, questionTitle, answerText string) (*repo.Interview, error) {
	if interview.Status != repo.StatusInProgress {
		return nil, status.Error(codes.FailedPrecondition, "interview not started")
	}

	answer := repo.Answer{
		QuestionID:    questionID,
		QuestionTitle: questionTitle,
		AnswerText:    answerText,
		AnsweredAt:    time.Now().UTC(),
	}
	if err := s.repo.AppendAnswer(ctx, interview.ID, answer); err != nil {
		s.logger.Error("Failed to append answer",
			zap.String("interviewId", interview.ID),
			zap.String("questionId", questionID),
			zap.Error(err))
		return nil, status.Errorf(codes.Internal, "failed to save answer: %v", err)
	}
	interview.Answers = append(interview.Answers, answer)

	s.publish(ctx, event.TopicAnswerSubmitted, event.AnswerSubmitted{
		InterviewID:     interview.ID,
		UserID:          interview.UserID,
		QuestionID:      questionID,
		QuestionTitle:   questionTitle,
		QuestionContent: questionTitle,
		Answer:          answerText,
	})

	return interview, nil
}

func (s *Interviews) Complete(ctx context.Context, userID, id string) (*repo.Interview, error) {
	interview, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if interview.Status.Terminal() {
		return nil, status.Error(codes.FailedPrecondition, "interview already completed")
	}

	overall := meanScore(interview.Answers)
	feedback := fmt.Sprintf("Mülakat tamamlandı. %d soru üzerinden genel puanınız: %d/100.", len(interview.Answers), overall)

	now := time.Now().UTC()
	if err := s.repo.SetCompleted(ctx, id, overall, feedback, now); err != nil {
		s.logger.Error("Failed to complete interview", zap.String("interviewId", id), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "failed to complete interview: %v", err)
	}
	interview.Status = repo.StatusCompleted
	interview.OverallScore = overall
	interview.Feedback = feedback
	interview.CompletedAt = &now

	s.publish(ctx, event.TopicInterviewCompleted, event.InterviewCompleted{
		InterviewID:  interview.ID,
		UserID:       interview.UserID,
		OverallScore: overall,
	})

	return interview, nil
}

// CompleteWithReport is the privileged variant used once full scoring is
// available. It deliberately skips the status check: the voice flow may race
// a user-initiated cancel, and a second call overwrites the report.
func (s *Interviews) CompleteWithReport(ctx context.Context, id string, report *repo.Report, overallFeedback string) (*repo.Interview, error) {
	interview, err := s.get(ctx, "", id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.SetReport(ctx, id, report, overallFeedback, now); err != nil {
		s.logger.Error("Failed to save report", zap.String("interviewId", id), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "failed to save report: %v", err)
	}
	interview.Status = repo.StatusCompleted
	interview.Report = report
	interview.OverallScore = report.OverallScore
	interview.Feedback = overallFeedback
	interview.CompletedAt = &now

	s.publish(ctx, event.TopicInterviewCompleted, event.InterviewCompleted{
		InterviewID:  interview.ID,
		UserID:       interview.UserID,
		OverallScore: report.OverallScore,
	})

	return interview, nil
}

// Cancel emits no event. The asymmetry against the other transitions is
// pinned by the test suite.
func (s *Interviews) Cancel(ctx context.Context, userID, id string) (*repo.Interview, error) {
	interview, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if interview.Status.Terminal() {
		return nil, status.Error(codes.FailedPrecondition, "interview already completed")
	}

	if err := s.repo.SetStatus(ctx, id, repo.StatusCancelled); err != nil {
		s.logger.Error("Failed to cancel interview", zap.String("interviewId", id), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "failed to cancel interview: %v", err)
	}
	interview.Status = repo.StatusCancelled

	return interview, nil
}

// UpdateAnswerWithAIFeedback patches the first answer matching questionID.
func (s *Interviews) UpdateAnswerWithAIFeedback(ctx context.Context, id, questionID string, feedback AnswerFeedback) error {
	err := s.repo.PatchAnswerFeedback(ctx, id, questionID, feedback.Score, feedback.Feedback,
		feedback.Strengths, feedback.Improvements, time.Now().UTC())
	if err != nil {
		s.logger.Error("Failed to patch answer feedback",
			zap.String("interviewId", id),
			zap.String("questionId", questionID),
			zap.Error(err))
		return status.Errorf(codes.Internal, "failed to update answer: %v", err)
	}
	return nil
}

func (s *Interviews) AppendTranscript(ctx context.Context, id, role, text string) error {
	entry := repo.TranscriptEntry{Role: role, Text: text, At: time.Now().UTC()}
	if err := s.repo.AppendTranscript(ctx, id, entry); err != nil {
		return status.Errorf(codes.Internal, "failed to append transcript: %v", err)
	}
	return nil
}

func (s *Interviews) Stats(ctx context.Context, userID string) (*repo.Stats, error) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to aggregate stats", zap.String("userId", userID), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "failed to aggregate stats: %v", err)
	}
	return stats, nil
}

// ReceiveEvaluation consumes ai.evaluation_completed and patches the matching
// answer. Re-delivery is harmless: the patch is a full overwrite of the same
// fields.
func (s *Interviews) ReceiveEvaluation(ctx context.Context, msg amqp.Delivery) error {
	env, err := event.Decode(msg.Body)
	if err != nil {
		s.logger.Error("Malformed evaluation event, dropping", zap.Error(err))
		return nil
	}
	var payload event.EvaluationCompleted
	if err := env.Unwrap(&payload); err != nil {
		s.logger.Error("Malformed evaluation payload, dropping",
			zap.String("eventId", env.EventID), zap.Error(err))
		return nil
	}

	err = s.UpdateAnswerWithAIFeedback(ctx, payload.InterviewID, payload.QuestionID, AnswerFeedback{
		Score:        payload.Score,
		Feedback:     payload.Feedback,
		Strengths:    payload.Strengths,
		Improvements: payload.Improvements,
	})
	if err != nil {
		return err
	}

	s.logger.Info("Applied evaluation",
		zap.String("interviewId", payload.InterviewID),
		zap.String("questionId", payload.QuestionID),
		zap.String("correlationId", env.CorrelationID))

	if s.notifier != nil {
		s.notifier.Notify(payload.UserID, map[string]interface{}{
			"type":        "answer_evaluated",
			"interviewId": payload.InterviewID,
			"questionId":  payload.QuestionID,
			"score":       payload.Score,
		})
	}

	return nil
}

func meanScore(answers []repo.Answer) int32 {
	var sum, scored int32
	for _, a := range answers {
		if a.Score != nil {
			sum += *a.Score
			scored++
		}
	}
	if scored == 0 {
		return 0
	}
	return sum / scored
}

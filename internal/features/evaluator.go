package features

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	sv "intervia/internal/service"
	"intervia/pkg/event"
	rabbit "intervia/pkg/rabbit/pkg"
	redis "intervia/pkg/redis/pkg"
)

const engineSourceService = "engine-service"

const dedupTTL = 24 * time.Hour

// Evaluator consumes answer-submitted events, scores the single answer
// through the text-generation capability, and publishes the result. No
// component tracks how many of an interview's answers have been scored;
// readers poll and tolerate partially-scored lists.
type Evaluator struct {
	engine sv.Engine
	rabbit rabbit.Rabbit
	dedup  redis.Dedup
	pool   *EvaluationWorkerPool
	logger *zap.Logger
}

func NewEvaluator(engine sv.Engine, bus rabbit.Rabbit, dedup redis.Dedup, pool *EvaluationWorkerPool, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		engine: engine,
		rabbit: bus,
		dedup:  dedup,
		pool:   pool,
		logger: logger,
	}
}

// ReceiveAnswer is the consumer callback for interview.answer_submitted.
// Malformed events are dropped with an ack: redelivery cannot fix them.
func (e *Evaluator) ReceiveAnswer(ctx context.Context, msg amqp.Delivery) error {
	env, err := event.Decode(msg.Body)
	if err != nil {
		e.logger.Error("Malformed answer event, dropping", zap.Error(err))
		return nil
	}
	var payload event.AnswerSubmitted
	if err := env.Unwrap(&payload); err != nil {
		e.logger.Error("Malformed answer payload, dropping",
			zap.String("eventId", env.EventID), zap.Error(err))
		return nil
	}

	// Emitting twice for the same event would double-score; the dedup store
	// absorbs at-least-once redelivery best-effort.
	first, err := e.dedup.MarkSeen(ctx, "evt:"+env.EventID, dedupTTL)
	if err != nil {
		e.logger.Warn("Dedup store unavailable, processing anyway",
			zap.String("eventId", env.EventID), zap.Error(err))
	} else if !first {
		e.logger.Info("Duplicate answer event, skipping",
			zap.String("eventId", env.EventID))
		return nil
	}

	if e.pool != nil {
		if e.pool.Enqueue(e.logger, EvaluationJob{Envelope: env, Answer: payload}) {
			return nil
		}
		// Queue saturated: fall through and evaluate on the consumer
		// goroutine rather than dropping the event.
	}

	e.Process(ctx, EvaluationJob{Envelope: env, Answer: payload})
	return nil
}

// Process scores one answer and publishes ai.evaluation_completed. The
// consumer does not look up interview configuration: field defaults to
// "general" and the tech stack stays empty.
func (e *Evaluator) Process(ctx context.Context, job EvaluationJob) {
	answer := job.Answer

	result, err := e.engine.Evaluate(ctx, "general", nil, []sv.AnswerSubmission{{
		QuestionID: answer.QuestionID,
		Question:   answer.QuestionTitle,
		Answer:     answer.Answer,
	}})
	if err != nil {
		e.logger.Error("Failed to evaluate answer",
			zap.String("interviewId", answer.InterviewID),
			zap.String("questionId", answer.QuestionID),
			zap.Error(err))
		return
	}

	completed := event.EvaluationCompleted{
		InterviewID: answer.InterviewID,
		QuestionID:  answer.QuestionID,
		UserID:      answer.UserID,
	}
	if len(result.QuestionEvaluations) > 0 {
		qe := result.QuestionEvaluations[0]
		completed.Score = qe.Score
		completed.Feedback = qe.Feedback
		completed.Strengths = qe.Strengths
		completed.Improvements = qe.Improvements
	} else {
		completed.Score = result.OverallScore
		completed.Feedback = result.Summary
	}

	env, err := event.New(event.TopicEvaluationCompleted, engineSourceService, completed)
	if err != nil {
		e.logger.Error("Failed to build evaluation event", zap.Error(err))
		return
	}
	env.WithCorrelation(job.Envelope.EventID)

	body, err := env.Encode()
	if err != nil {
		e.logger.Error("Failed to encode evaluation event", zap.Error(err))
		return
	}
	if err := e.rabbit.Publish(ctx, event.TopicEvaluationCompleted, body); err != nil {
		e.logger.Error("Failed to publish evaluation event",
			zap.String("interviewId", answer.InterviewID),
			zap.Error(err))
		return
	}

	e.logger.Info("Evaluation completed",
		zap.String("interviewId", answer.InterviewID),
		zap.String("questionId", answer.QuestionID),
		zap.Int32("score", completed.Score),
		zap.String("correlationId", job.Envelope.EventID))
}

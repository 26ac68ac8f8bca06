package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topics carried on the bus. Routing keys on the events exchange.
const (
	TopicUserRegistered      = "user.registered"
	TopicInterviewCreated    = "interview.created"
	TopicInterviewStarted    = "interview.started"
	TopicAnswerSubmitted     = "interview.answer_submitted"
	TopicInterviewCompleted  = "interview.completed"
	TopicEvaluationCompleted = "ai.evaluation_completed"
)

// Envelope is the fixed wrapper for every message on the bus. Consumers use
// EventID and CorrelationID for tracing, not deduplication.
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// New wraps a payload into a fresh envelope for the given topic.
func New(eventType, sourceService string, payload interface{}) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
		SourceService: sourceService,
		Payload:       body,
	}, nil
}

// WithCorrelation sets the correlation id and returns the envelope for chaining.
func (e *Envelope) WithCorrelation(id string) *Envelope {
	e.CorrelationID = id
	return e
}

// Encode serializes the envelope for publishing.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a raw bus message into an envelope.
func Decode(body []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Unwrap decodes the topic-specific payload into dst.
func (e *Envelope) Unwrap(dst interface{}) error {
	return json.Unmarshal(e.Payload, dst)
}

// InterviewCreated is the payload for interview.created.
type InterviewCreated struct {
	InterviewID string   `json:"interviewId"`
	UserID      string   `json:"userId"`
	Field       string   `json:"field"`
	TechStack   []string `json:"techStack"`
	Difficulty  string   `json:"difficulty"`
}

// InterviewStarted is the payload for interview.started.
type InterviewStarted struct {
	InterviewID string    `json:"interviewId"`
	UserID      string    `json:"userId"`
	StartedAt   time.Time `json:"startedAt"`
}

// AnswerSubmitted is the payload for interview.answer_submitted. It carries
// the full answer so the evaluation pipeline needs no read-back.
type AnswerSubmitted struct {
	InterviewID     string `json:"interviewId"`
	UserID          string `json:"userId"`
	QuestionID      string `json:"questionId"`
	QuestionTitle   string `json:"questionTitle"`
	QuestionContent string `json:"questionContent"`
	Answer          string `json:"answer"`
}

// InterviewCompleted is the payload for interview.completed.
type InterviewCompleted struct {
	InterviewID  string `json:"interviewId"`
	UserID       string `json:"userId"`
	OverallScore int32  `json:"overallScore"`
}

// EvaluationCompleted is the payload for ai.evaluation_completed.
type EvaluationCompleted struct {
	InterviewID  string   `json:"interviewId"`
	QuestionID   string   `json:"questionId"`
	UserID       string   `json:"userId"`
	Score        int32    `json:"score"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

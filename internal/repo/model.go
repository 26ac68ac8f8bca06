package repo

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no forward transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Answer is one recorded answer. Score and feedback stay unset until the
// evaluation pipeline patches them in.
type Answer struct {
	QuestionID    string     `bson:"questionId" json:"questionId"`
	QuestionTitle string     `bson:"questionTitle" json:"questionTitle"`
	AnswerText    string     `bson:"answerText" json:"answerText"`
	Score         *int32     `bson:"score,omitempty" json:"score,omitempty"`
	Feedback      string     `bson:"feedback,omitempty" json:"feedback,omitempty"`
	Strengths     []string   `bson:"strengths,omitempty" json:"strengths,omitempty"`
	Improvements  []string   `bson:"improvements,omitempty" json:"improvements,omitempty"`
	AnsweredAt    time.Time  `bson:"answeredAt" json:"answeredAt"`
	EvaluatedAt   *time.Time `bson:"evaluatedAt,omitempty" json:"evaluatedAt,omitempty"`
}

// Report is the full-interview evaluation aggregate, set when evaluation
// completes.
type Report struct {
	TechnicalScore     int32    `bson:"technicalScore" json:"technicalScore"`
	CommunicationScore int32    `bson:"communicationScore" json:"communicationScore"`
	DictionScore       int32    `bson:"dictionScore" json:"dictionScore"`
	ConfidenceScore    int32    `bson:"confidenceScore" json:"confidenceScore"`
	OverallScore       int32    `bson:"overallScore" json:"overallScore"`
	Summary            string   `bson:"summary" json:"summary"`
	Recommendations    []string `bson:"recommendations,omitempty" json:"recommendations,omitempty"`
}

// TranscriptEntry is one utterance captured from the voice provider.
type TranscriptEntry struct {
	Role string    `bson:"role" json:"role"`
	Text string    `bson:"text" json:"text"`
	At   time.Time `bson:"at" json:"at"`
}

// Interview is the aggregate root owned by the interview service.
type Interview struct {
	ID              string            `bson:"_id" json:"id"`
	UserID          string            `bson:"userId" json:"userId"`
	Title           string            `bson:"title,omitempty" json:"title,omitempty"`
	Field           string            `bson:"field" json:"field"`
	TechStack       []string          `bson:"techStack" json:"techStack"`
	Difficulty      string            `bson:"difficulty" json:"difficulty"`
	DurationMinutes int32             `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	QuestionIDs     []string          `bson:"questionIds,omitempty" json:"questionIds,omitempty"`
	QuestionCount   int32             `bson:"questionCount" json:"questionCount"`
	Status          Status            `bson:"status" json:"status"`
	Answers         []Answer          `bson:"answers,omitempty" json:"answers,omitempty"`
	Report          *Report           `bson:"report,omitempty" json:"report,omitempty"`
	OverallScore    int32             `bson:"overallScore,omitempty" json:"overallScore,omitempty"`
	Feedback        string            `bson:"feedback,omitempty" json:"feedback,omitempty"`
	ExternalCallID  string            `bson:"externalCallId,omitempty" json:"externalCallId,omitempty"`
	Transcript      []TranscriptEntry `bson:"transcript,omitempty" json:"transcript,omitempty"`
	CreatedAt       time.Time         `bson:"createdAt" json:"createdAt"`
	StartedAt       *time.Time        `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt     *time.Time        `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// Stats is the per-user aggregate returned by the stats query.
type Stats struct {
	Total        int32 `bson:"total" json:"total"`
	Completed    int32 `bson:"completed" json:"completed"`
	InProgress   int32 `bson:"inProgress" json:"inProgress"`
	Cancelled    int32 `bson:"cancelled" json:"cancelled"`
	AverageScore int32 `bson:"averageScore" json:"averageScore"`
}

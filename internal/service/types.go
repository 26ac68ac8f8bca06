package service

// Wire shapes for the remote call layer. All fields are flat camelCase
// records; each boundary maps them to its internal model itself, and lossy
// fields default to zero values rather than null.

type CreateInterviewRequest struct {
	UserID          string   `json:"userId"`
	Field           string   `json:"field"`
	TechStack       []string `json:"techStack"`
	Difficulty      string   `json:"difficulty"`
	Title           string   `json:"title,omitempty"`
	QuestionCount   int32    `json:"questionCount,omitempty"`
	DurationMinutes int32    `json:"durationMinutes,omitempty"`
	ExternalCallID  string   `json:"externalCallId,omitempty"`
}

type StartInterviewRequest struct {
	QuestionIDs []string `json:"questionIds,omitempty"`
}

type SubmitAnswerRequest struct {
	QuestionID    string `json:"questionId"`
	QuestionTitle string `json:"questionTitle"`
	AnswerText    string `json:"answerText"`
}

type CompleteWithReportRequest struct {
	Report          Report `json:"report"`
	OverallFeedback string `json:"overallFeedback"`
}

type TranscriptRequest struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type Report struct {
	TechnicalScore     int32    `json:"technicalScore"`
	CommunicationScore int32    `json:"communicationScore"`
	DictionScore       int32    `json:"dictionScore"`
	ConfidenceScore    int32    `json:"confidenceScore"`
	OverallScore       int32    `json:"overallScore"`
	Summary            string   `json:"summary"`
	Recommendations    []string `json:"recommendations,omitempty"`
}

type Answer struct {
	QuestionID    string   `json:"questionId"`
	QuestionTitle string   `json:"questionTitle"`
	AnswerText    string   `json:"answerText"`
	Score         *int32   `json:"score,omitempty"`
	Feedback      string   `json:"feedback,omitempty"`
	Strengths     []string `json:"strengths,omitempty"`
	Improvements  []string `json:"improvements,omitempty"`
}

type Interview struct {
	ID            string   `json:"id"`
	UserID        string   `json:"userId"`
	Title         string   `json:"title,omitempty"`
	Field         string   `json:"field"`
	TechStack     []string `json:"techStack"`
	Difficulty    string   `json:"difficulty"`
	QuestionIDs   []string `json:"questionIds,omitempty"`
	QuestionCount int32    `json:"questionCount"`
	Status        string   `json:"status"`
	Answers       []Answer `json:"answers,omitempty"`
	Report        *Report  `json:"report,omitempty"`
	OverallScore  int32    `json:"overallScore,omitempty"`
	Feedback      string   `json:"feedback,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	StartedAt     string   `json:"startedAt,omitempty"`
	CompletedAt   string   `json:"completedAt,omitempty"`
}

type Question struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content,omitempty"`
	Category   string   `json:"category,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

type GeneratedQuestion struct {
	Question          string   `json:"question"`
	Order             int32    `json:"order"`
	ExpectedKeyPoints []string `json:"expectedKeyPoints,omitempty"`
}

type AnswerSubmission struct {
	QuestionID string `json:"questionId,omitempty"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

type QuestionEvaluation struct {
	QuestionID   string   `json:"questionId,omitempty"`
	Score        int32    `json:"score"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
}

type EvaluationResult struct {
	TechnicalScore      int32                `json:"technicalScore"`
	CommunicationScore  int32                `json:"communicationScore"`
	DictionScore        int32                `json:"dictionScore"`
	ConfidenceScore     int32                `json:"confidenceScore"`
	OverallScore        int32                `json:"overallScore"`
	Summary             string               `json:"summary"`
	Recommendations     []string             `json:"recommendations,omitempty"`
	QuestionEvaluations []QuestionEvaluation `json:"questionEvaluations,omitempty"`
}

package handler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sv "intervia/internal/service"
)

const voiceQuestionCount = 5

// zeroAnswerSummary ends a call that produced nothing to evaluate.
const zeroAnswerSummary = "Mülakat sırasında hiç cevap kaydedilmedi, bu yüzden değerlendirme yapılamadı."

// failedEvaluationSummary covers an end-of-call evaluation that could not run.
const failedEvaluationSummary = "Değerlendirme sırasında bir hata oluştu. Puanlar hesaplanamadı."

type savePreferencesParams struct {
	Field       string   `json:"field"`
	TechStack   []string `json:"techStack"`
	Difficulty  string   `json:"difficulty"`
	UserID      string   `json:"userId,omitempty"`
	InterviewID string   `json:"interviewId,omitempty"`
}

// voiceQuestion is the provider-friendly question shape. The conversational
// agent holds the full list in its own context and echoes it back each turn.
type voiceQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Order    int32  `json:"order"`
}

type saveAnswerParams struct {
	InterviewID   string          `json:"interviewId"`
	QuestionOrder int32           `json:"questionOrder"`
	QuestionText  string          `json:"questionText"`
	Answer        string          `json:"answer"`
	Questions     []voiceQuestion `json:"questions"`
}

type nextQuestionParams struct {
	CurrentOrder int32           `json:"currentOrder"`
	Questions    []voiceQuestion `json:"questions"`
}

type callerAnswer struct {
	QuestionID string `json:"questionId,omitempty"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

type endInterviewParams struct {
	InterviewID string         `json:"interviewId"`
	Answers     []callerAnswer `json:"answers,omitempty"`
}

// InterviewAPI is the slice of the interview service the orchestrator drives.
type InterviewAPI interface {
	Create(ctx context.Context, req *sv.CreateInterviewRequest) (*sv.Interview, error)
	Get(ctx context.Context, interviewID, userID string) (*sv.Interview, error)
	GetByCall(ctx context.Context, callID string) (*sv.Interview, error)
	Start(ctx context.Context, interviewID string, questionIDs []string) (*sv.Interview, error)
	SubmitAnswer(ctx context.Context, interviewID, questionID, questionTitle, answerText string) (*sv.Interview, error)
	CompleteWithReport(ctx context.Context, interviewID string, report sv.Report, overallFeedback string) error
	AppendTranscript(ctx context.Context, interviewID, role, text string) error
}

// QuestionAPI is the slice of the question bank the orchestrator uses.
type QuestionAPI interface {
	GetRandom(ctx context.Context, count int32, category, difficulty string, tags []string) ([]sv.Question, error)
	Generate(ctx context.Context, field string, techStack []string, difficulty string, count int32) error
}

// Orchestrator chains remote calls for a live voice conversation. Every step
// degrades to a usable payload: the call must go on.
type Orchestrator struct {
	interviews InterviewAPI
	questions  QuestionAPI
	engine     sv.Engine
	logger     *zap.Logger
}

func NewOrchestrator(interviews InterviewAPI, questions QuestionAPI, engine sv.Engine, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		interviews: interviews,
		questions:  questions,
		engine:     engine,
		logger:     logger,
	}
}

// SavePreferences fetches or creates the interview, sources questions through
// the three-tier fallback, starts the interview, and hands the question list
// to the provider.
func (o *Orchestrator) SavePreferences(ctx context.Context, callID string, params savePreferencesParams) map[string]interface{} {
	var interview *sv.Interview
	var err error

	if params.InterviewID != "" {
		interview, err = o.interviews.Get(ctx, params.InterviewID, "")
	} else {
		userID := params.UserID
		if userID == "" {
			userID = "anonymous"
		}
		interview, err = o.interviews.Create(ctx, &sv.CreateInterviewRequest{
			UserID:         userID,
			Field:          params.Field,
			TechStack:      params.TechStack,
			Difficulty:     params.Difficulty,
			QuestionCount:  voiceQuestionCount,
			ExternalCallID: callID,
		})
	}
	if err != nil {
		o.logger.Error("Failed to resolve interview for voice call",
			zap.String("callId", callID), zap.Error(err))
		return errorResult("could not prepare the interview")
	}

	questions := o.sourceQuestions(ctx, interview)
	if len(questions) == 0 {
		o.logger.Error("All question sources failed",
			zap.String("interviewId", interview.ID))
		return errorResult("no questions available")
	}

	count := interview.QuestionCount
	if count <= 0 || count > int32(len(questions)) {
		count = int32(len(questions))
	}
	questions = questions[:count]

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	if _, err := o.interviews.Start(ctx, interview.ID, ids); err != nil {
		o.logger.Error("Failed to start interview",
			zap.String("interviewId", interview.ID), zap.Error(err))
		return errorResult("could not start the interview")
	}

	return map[string]interface{}{
		"interviewId":   interview.ID,
		"firstQuestion": questions[0].Question,
		"questions":     questions,
	}
}

// sourceQuestions tries the bank sample, then bank-side generation with a
// re-sample, then direct text generation. Directly generated questions are
// held in memory only, never persisted to the bank.
func (o *Orchestrator) sourceQuestions(ctx context.Context, interview *sv.Interview) []voiceQuestion {
	count := interview.QuestionCount
	if count <= 0 {
		count = voiceQuestionCount
	}

	sampled, err := o.questions.GetRandom(ctx, count, interview.Field, interview.Difficulty, interview.TechStack)
	if err != nil {
		o.logger.Warn("Question bank sample failed",
			zap.String("interviewId", interview.ID), zap.Error(err))
	}

	if int32(len(sampled)) < count {
		if err := o.questions.Generate(ctx, interview.Field, interview.TechStack, interview.Difficulty, count); err != nil {
			o.logger.Warn("Bank-side generation failed",
				zap.String("interviewId", interview.ID), zap.Error(err))
		} else if resampled, err := o.questions.GetRandom(ctx, count, interview.Field, interview.Difficulty, interview.TechStack); err == nil && len(resampled) > len(sampled) {
			sampled = resampled
		}
	}

	if len(sampled) > 0 {
		formatted := make([]voiceQuestion, 0, len(sampled))
		for i, q := range sampled {
			formatted = append(formatted, voiceQuestion{
				ID:       q.ID,
				Question: q.Title,
				Order:    int32(i + 1),
			})
		}
		return formatted
	}

	generated, err := o.engine.GenerateQuestions(ctx, interview.Field, interview.TechStack, interview.Difficulty, count)
	if err != nil {
		o.logger.Error("Direct question generation failed",
			zap.String("interviewId", interview.ID), zap.Error(err))
		return nil
	}

	formatted := make([]voiceQuestion, 0, len(generated))
	for i, q := range generated {
		formatted = append(formatted, voiceQuestion{
			ID:       "gen_" + uuid.New().String(),
			Question: q.Question,
			Order:    int32(i + 1),
		})
	}
	return formatted
}

// SaveAnswer persists the answer best-effort and computes the next question
// purely from the list the provider echoed back. The provider is the source
// of truth for conversation position.
func (o *Orchestrator) SaveAnswer(ctx context.Context, params saveAnswerParams) map[string]interface{} {
	questionID := ""
	for _, q := range params.Questions {
		if q.Order == params.QuestionOrder {
			questionID = q.ID
			break
		}
	}
	if questionID == "" {
		questionID = fmt.Sprintf("q_%d", params.QuestionOrder)
	}

	if _, err := o.interviews.SubmitAnswer(ctx, params.InterviewID, questionID, params.QuestionText, params.Answer); err != nil {
		// The voice flow must not stall on a persistence hiccup.
		o.logger.Error("Failed to persist answer",
			zap.String("interviewId", params.InterviewID),
			zap.Int32("questionOrder", params.QuestionOrder),
			zap.Error(err))
	}

	return nextFromList(params.Questions, params.QuestionOrder)
}

// NextQuestion is a pure list-index lookup on caller-supplied data.
func (o *Orchestrator) NextQuestion(params nextQuestionParams) map[string]interface{} {
	return nextFromList(params.Questions, params.CurrentOrder)
}

func nextFromList(questions []voiceQuestion, currentOrder int32) map[string]interface{} {
	for _, q := range questions {
		if q.Order == currentOrder+1 {
			return map[string]interface{}{
				"nextQuestion": q.Question,
				"order":        q.Order,
				"finished":     false,
			}
		}
	}
	return map[string]interface{}{"finished": true}
}

// EndInterview evaluates whatever answers exist and always leaves the
// interview terminal, acknowledging completion to the provider even when a
// step inside failed.
func (o *Orchestrator) EndInterview(ctx context.Context, params endInterviewParams) map[string]interface{} {
	interview, err := o.interviews.Get(ctx, params.InterviewID, "")
	if err != nil {
		o.logger.Error("Failed to fetch interview at end of call",
			zap.String("interviewId", params.InterviewID), zap.Error(err))
		return map[string]interface{}{"completed": true}
	}

	// Persisted answers win; caller-supplied ones are a fallback only.
	var answers []sv.AnswerSubmission
	if len(interview.Answers) > 0 {
		for _, a := range interview.Answers {
			answers = append(answers, sv.AnswerSubmission{
				QuestionID: a.QuestionID,
				Question:   a.QuestionTitle,
				Answer:     a.AnswerText,
			})
		}
	} else {
		for _, a := range params.Answers {
			answers = append(answers, sv.AnswerSubmission{
				QuestionID: a.QuestionID,
				Question:   a.Question,
				Answer:     a.Answer,
			})
		}
	}

	report, feedback := o.buildReport(ctx, interview, answers)
	if err := o.interviews.CompleteWithReport(ctx, interview.ID, report, feedback); err != nil {
		o.logger.Error("Failed to complete interview with report",
			zap.String("interviewId", interview.ID), zap.Error(err))
	}

	return map[string]interface{}{"completed": true}
}

func (o *Orchestrator) buildReport(ctx context.Context, interview *sv.Interview, answers []sv.AnswerSubmission) (sv.Report, string) {
	if len(answers) == 0 {
		return sv.Report{Summary: zeroAnswerSummary}, zeroAnswerSummary
	}

	result, err := o.engine.Evaluate(ctx, interview.Field, interview.TechStack, answers)
	if err != nil {
		o.logger.Error("Evaluation failed at end of call",
			zap.String("interviewId", interview.ID), zap.Error(err))
		return sv.Report{Summary: failedEvaluationSummary}, failedEvaluationSummary
	}

	return sv.Report{
		TechnicalScore:     result.TechnicalScore,
		CommunicationScore: result.CommunicationScore,
		DictionScore:       result.DictionScore,
		ConfidenceScore:    result.ConfidenceScore,
		OverallScore:       result.OverallScore,
		Summary:            result.Summary,
		Recommendations:    result.Recommendations,
	}, result.Summary
}

// RecordTranscript appends one utterance to the interview found by external
// call id. Failures are logged, never surfaced to the provider.
func (o *Orchestrator) RecordTranscript(ctx context.Context, callID, role, text string) {
	if callID == "" || text == "" {
		return
	}
	interview, err := o.interviews.GetByCall(ctx, callID)
	if err != nil {
		o.logger.Warn("No interview for transcript callback",
			zap.String("callId", callID), zap.Error(err))
		return
	}
	if err := o.interviews.AppendTranscript(ctx, interview.ID, role, text); err != nil {
		o.logger.Warn("Failed to append transcript",
			zap.String("interviewId", interview.ID), zap.Error(err))
	}
}

// FinalizeStaleCall ends an interview whose voice call went silent, through
// the same path an explicit end_interview would take.
func (o *Orchestrator) FinalizeStaleCall(ctx context.Context, callID string) {
	interview, err := o.interviews.GetByCall(ctx, callID)
	if err != nil {
		o.logger.Warn("No interview for stale call",
			zap.String("callId", callID), zap.Error(err))
		return
	}
	if interview.Status == "completed" || interview.Status == "cancelled" {
		return
	}
	o.logger.Info("Finalizing stale voice call",
		zap.String("callId", callID),
		zap.String("interviewId", interview.ID))
	o.EndInterview(ctx, endInterviewParams{InterviewID: interview.ID})
}

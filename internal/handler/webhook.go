package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Voice provider callback types. The set is closed: unknown tags are
// rejected explicitly instead of being silently acknowledged.
const (
	callbackFunctionCall    = "function-call"
	callbackEndOfCallReport = "end-of-call-report"
	callbackStatusUpdate    = "status-update"
	callbackTranscript      = "transcript"
)

// Function-call names the conversational agent may invoke.
const (
	fnSavePreferences = "save_preferences"
	fnSaveAnswer      = "save_answer"
	fnGetNextQuestion = "get_next_question"
	fnEndInterview    = "end_interview"
)

type functionCall struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

type callInfo struct {
	ID string `json:"id"`
}

type webhookMessage struct {
	Type         string        `json:"type"`
	FunctionCall *functionCall `json:"functionCall,omitempty"`
	Call         *callInfo     `json:"call,omitempty"`
	Status       string        `json:"status,omitempty"`
	Role         string        `json:"role,omitempty"`
	Transcript   string        `json:"transcript,omitempty"`
	EndedReason  string        `json:"endedReason,omitempty"`
	Summary      string        `json:"summary,omitempty"`
}

type webhookEnvelope struct {
	Message webhookMessage `json:"message"`
}

// WebhookHandler receives voice provider callbacks and drives the session
// saga. The provider is latency-sensitive and stateful: every path returns
// HTTP 200 with a usable body, never an error the call would stall on.
type WebhookHandler struct {
	orc      *Orchestrator
	watchdog *CallWatchdog
	logger   *zap.Logger
}

func NewWebhookHandler(orc *Orchestrator, watchdog *CallWatchdog, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		orc:      orc,
		watchdog: watchdog,
		logger:   logger,
	}
}

func (h *WebhookHandler) Register(r *gin.Engine) {
	r.POST("/webhook/voice", h.Handle)
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	var envelope webhookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.logger.Error("Malformed webhook body", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": false, "error": "malformed body"})
		return
	}

	msg := envelope.Message
	callID := ""
	if msg.Call != nil {
		callID = msg.Call.ID
	}

	switch msg.Type {
	case callbackFunctionCall:
		if msg.FunctionCall == nil {
			c.JSON(http.StatusOK, gin.H{"result": gin.H{"error": "missing function call"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": h.dispatch(c, callID, msg.FunctionCall)})

	case callbackTranscript:
		h.orc.RecordTranscript(c.Request.Context(), callID, msg.Role, msg.Transcript)
		c.JSON(http.StatusOK, gin.H{"received": true})

	case callbackStatusUpdate:
		h.logger.Info("Voice call status update",
			zap.String("callId", callID),
			zap.String("status", msg.Status))
		switch msg.Status {
		case "in-progress":
			h.watchdog.Arm(callID)
		case "ended":
			h.watchdog.Disarm(callID)
		}
		c.JSON(http.StatusOK, gin.H{"received": true})

	case callbackEndOfCallReport:
		h.logger.Info("End of call report",
			zap.String("callId", callID),
			zap.String("endedReason", msg.EndedReason),
			zap.String("summary", msg.Summary))
		h.watchdog.Disarm(callID)
		c.JSON(http.StatusOK, gin.H{"received": true})

	default:
		h.logger.Warn("Unknown callback type", zap.String("type", msg.Type))
		c.JSON(http.StatusOK, gin.H{"received": false, "error": "unknown callback type: " + msg.Type})
	}
}

// dispatch routes a function call to its typed handler. Parameter decode
// failures degrade to an error result the conversational agent can speak.
func (h *WebhookHandler) dispatch(c *gin.Context, callID string, fc *functionCall) map[string]interface{} {
	ctx := c.Request.Context()

	switch fc.Name {
	case fnSavePreferences:
		var params savePreferencesParams
		if err := json.Unmarshal(fc.Parameters, &params); err != nil {
			return errorResult("invalid save_preferences parameters")
		}
		return h.orc.SavePreferences(ctx, callID, params)

	case fnSaveAnswer:
		var params saveAnswerParams
		if err := json.Unmarshal(fc.Parameters, &params); err != nil {
			return errorResult("invalid save_answer parameters")
		}
		return h.orc.SaveAnswer(ctx, params)

	case fnGetNextQuestion:
		var params nextQuestionParams
		if err := json.Unmarshal(fc.Parameters, &params); err != nil {
			return errorResult("invalid get_next_question parameters")
		}
		return h.orc.NextQuestion(params)

	case fnEndInterview:
		var params endInterviewParams
		if err := json.Unmarshal(fc.Parameters, &params); err != nil {
			return errorResult("invalid end_interview parameters")
		}
		return h.orc.EndInterview(ctx, params)

	default:
		h.logger.Warn("Unknown function call", zap.String("name", fc.Name))
		return errorResult("unknown function: " + fc.Name)
	}
}

func errorResult(msg string) map[string]interface{} {
	return map[string]interface{}{"error": msg}
}

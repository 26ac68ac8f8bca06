package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sv "intervia/internal/service"
)

func newWebhookServer(t *testing.T, iv *fakeInterviewAPI, qs *fakeQuestionAPI, eng *fakeSagaEngine) (*gin.Engine, *CallWatchdog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orc := newTestOrchestrator(iv, qs, eng)
	watchdog := NewCallWatchdog(zap.NewNop(), time.Hour, orc.FinalizeStaleCall)
	t.Cleanup(watchdog.Shutdown)

	r := gin.New()
	NewWebhookHandler(orc, watchdog, zap.NewNop()).Register(r)
	return r, watchdog
}

func postWebhook(t *testing.T, r *gin.Engine, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook/voice", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w.Code, decoded
}

func functionCallBody(callID, name string, params interface{}) map[string]interface{} {
	raw, _ := json.Marshal(params)
	return map[string]interface{}{
		"message": map[string]interface{}{
			"type": callbackFunctionCall,
			"call": map[string]interface{}{"id": callID},
			"functionCall": map[string]interface{}{
				"name":       name,
				"parameters": json.RawMessage(raw),
			},
		},
	}
}

func TestWebhook_SavePreferencesFlow(t *testing.T) {
	iv := &fakeInterviewAPI{}
	qs := &fakeQuestionAPI{sample: bankQuestions(5)}
	r, _ := newWebhookServer(t, iv, qs, &fakeSagaEngine{})

	code, body := postWebhook(t, r, functionCallBody("call-1", fnSavePreferences, savePreferencesParams{
		Field: "backend",
	}))

	assert.Equal(t, http.StatusOK, code)
	result := body["result"].(map[string]interface{})
	assert.Equal(t, "iv-1", result["interviewId"])
	assert.Equal(t, "Soru A", result["firstQuestion"])
	assert.Equal(t, "call-1", iv.created.ExternalCallID)
}

func TestWebhook_UnknownFunctionRejected(t *testing.T) {
	r, _ := newWebhookServer(t, &fakeInterviewAPI{}, &fakeQuestionAPI{}, &fakeSagaEngine{})

	code, body := postWebhook(t, r, functionCallBody("call-1", "delete_everything", map[string]string{}))

	assert.Equal(t, http.StatusOK, code)
	result := body["result"].(map[string]interface{})
	assert.Equal(t, "unknown function: delete_everything", result["error"])
}

func TestWebhook_UnknownCallbackTypeRejected(t *testing.T) {
	r, _ := newWebhookServer(t, &fakeInterviewAPI{}, &fakeQuestionAPI{}, &fakeSagaEngine{})

	code, body := postWebhook(t, r, map[string]interface{}{
		"message": map[string]interface{}{"type": "speech-update"},
	})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["received"])
	assert.Equal(t, "unknown callback type: speech-update", body["error"])
}

func TestWebhook_MalformedBodyStillAcks(t *testing.T) {
	r, _ := newWebhookServer(t, &fakeInterviewAPI{}, &fakeQuestionAPI{}, &fakeSagaEngine{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/voice", bytes.NewReader([]byte("{broken")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["received"])
}

func TestWebhook_TranscriptRecorded(t *testing.T) {
	iv := &fakeInterviewAPI{interview: &sv.Interview{ID: "iv-1"}}
	r, _ := newWebhookServer(t, iv, &fakeQuestionAPI{}, &fakeSagaEngine{})

	code, body := postWebhook(t, r, map[string]interface{}{
		"message": map[string]interface{}{
			"type":       callbackTranscript,
			"call":       map[string]interface{}{"id": "call-1"},
			"role":       "user",
			"transcript": "merhaba",
		},
	})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["received"])
	require.Len(t, iv.transcripts, 1)
	assert.Equal(t, "user: merhaba", iv.transcripts[0])
}

func TestWebhook_StatusUpdatesDriveWatchdog(t *testing.T) {
	r, watchdog := newWebhookServer(t, &fakeInterviewAPI{}, &fakeQuestionAPI{}, &fakeSagaEngine{})

	_, body := postWebhook(t, r, map[string]interface{}{
		"message": map[string]interface{}{
			"type":   callbackStatusUpdate,
			"call":   map[string]interface{}{"id": "call-1"},
			"status": "in-progress",
		},
	})
	assert.Equal(t, true, body["received"])

	// The in-progress update armed a timer for this call.
	assert.True(t, watchdog.Disarm("call-1"))
	assert.False(t, watchdog.Disarm("call-1"))
}

func TestWebhook_EndOfCallReportDisarms(t *testing.T) {
	r, watchdog := newWebhookServer(t, &fakeInterviewAPI{}, &fakeQuestionAPI{}, &fakeSagaEngine{})

	watchdog.Arm("call-1")
	_, body := postWebhook(t, r, map[string]interface{}{
		"message": map[string]interface{}{
			"type":        callbackEndOfCallReport,
			"call":        map[string]interface{}{"id": "call-1"},
			"endedReason": "customer-ended-call",
		},
	})
	assert.Equal(t, true, body["received"])
	assert.False(t, watchdog.Disarm("call-1"))
}

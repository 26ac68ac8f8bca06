package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func configureEngine(t *testing.T, url string) Engine {
	t.Helper()
	viper.Set("engine.url", url)
	viper.Set("engine.model", "test-model")
	viper.Set("engine.api_key", "test-key")
	t.Cleanup(func() {
		viper.Set("engine.api_key", "")
	})
	return NewHTTPEngine(zap.NewNop())
}

func TestGenerateQuestions_ParsesFencedOutput(t *testing.T) {
	content := "```json\n{\"questions\": [" +
		"{\"question\": \"Go'da goroutine nedir?\", \"order\": 1}," +
		"{\"question\": \"Kanallar nasıl çalışır?\"}" +
		"]}\n```"
	ts := chatServer(t, content)
	defer ts.Close()

	eng := configureEngine(t, ts.URL)
	questions, err := eng.GenerateQuestions(context.Background(), "backend", []string{"go"}, "intermediate", 2)
	require.NoError(t, err)

	require.Len(t, questions, 2)
	assert.Equal(t, "Go'da goroutine nedir?", questions[0].Question)
	// A missing order is backfilled from list position.
	assert.Equal(t, int32(2), questions[1].Order)
}

func TestGenerateQuestions_EmptyListIsError(t *testing.T) {
	ts := chatServer(t, `{"questions": []}`)
	defer ts.Close()

	eng := configureEngine(t, ts.URL)
	_, err := eng.GenerateQuestions(context.Background(), "backend", nil, "intermediate", 2)
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestEvaluate_ClampsScores(t *testing.T) {
	content := `The evaluation follows.
{"technicalScore": 140, "communicationScore": -5, "overallScore": 88.7,
 "summary": "özet",
 "questionEvaluations": [{"questionId": "q1", "score": 101, "feedback": "iyi"}]}`
	ts := chatServer(t, content)
	defer ts.Close()

	eng := configureEngine(t, ts.URL)
	result, err := eng.Evaluate(context.Background(), "backend", []string{"go"}, []AnswerSubmission{
		{QuestionID: "q1", Question: "Soru", Answer: "cevap"},
	})
	require.NoError(t, err)

	assert.Equal(t, int32(100), result.TechnicalScore)
	assert.Equal(t, int32(0), result.CommunicationScore)
	assert.Equal(t, int32(88), result.OverallScore)
	assert.Equal(t, "özet", result.Summary)
	require.Len(t, result.QuestionEvaluations, 1)
	assert.Equal(t, int32(100), result.QuestionEvaluations[0].Score)
}

func TestEvaluate_UnparseableOutput(t *testing.T) {
	ts := chatServer(t, "I cannot evaluate this interview.")
	defer ts.Close()

	eng := configureEngine(t, ts.URL)
	_, err := eng.Evaluate(context.Background(), "backend", nil, []AnswerSubmission{{Answer: "cevap"}})
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestEvaluate_EndpointDown(t *testing.T) {
	ts := chatServer(t, "{}")
	ts.Close()

	eng := configureEngine(t, ts.URL)
	_, err := eng.Evaluate(context.Background(), "backend", nil, []AnswerSubmission{{Answer: "cevap"}})
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestNewHTTPEngine_DisabledWithoutKey(t *testing.T) {
	viper.Set("engine.api_key", "")
	eng := NewHTTPEngine(zap.NewNop())

	_, err := eng.Evaluate(context.Background(), "backend", nil, nil)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = eng.GenerateQuestions(context.Background(), "backend", nil, "intermediate", 3)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

package flows

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/postscript/backend/internal/apperror"
	"github.com/zhouzirui/postscript/backend/internal/model/flow"
)

type stubTone struct{}

func (stubTone) AdaptTone(_ context.Context, in flow.ToneInput) (flow.ToneOutput, error) {
	if err := in.Validate(); err != nil {
		return flow.ToneOutput{}, err
	}
	return flow.ToneOutput{AdjustedMessage: strings.ToLower(in.Message)}, nil
}

type failingSpeech struct{}

func (failingSpeech) TextToSpeech(_ context.Context, _ flow.SpeechInput) (flow.SpeechOutput, error) {
	return flow.SpeechOutput{}, apperror.Externalf("speech.tts", "upstream closed")
}

type stubCloner struct{}

func (stubCloner) CloneVoice(_ context.Context, in flow.VoiceCloneInput) (flow.VoiceCloneOutput, error) {
	return flow.VoiceCloneOutput{VoiceCloneID: "dummy-" + in.Name, Message: "placeholder"}, nil
}

func serve(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestToneFlow(t *testing.T) {
	h := New(stubTone{}, nil, nil)

	resp := serve(h, http.MethodPost, "/flows/tone", `{"message":"HELLO THERE","personalityProfile":"soft spoken"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var out flow.ToneOutput
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "hello there", out.AdjustedMessage)

	resp = serve(h, http.MethodPost, "/flows/tone", `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSpeechFlowExternalError(t *testing.T) {
	h := New(nil, failingSpeech{}, nil)

	resp := serve(h, http.MethodPost, "/flows/speech", `{"textToSpeak":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Contains(t, resp.Body.String(), `"kind":"external_service"`)
}

func TestVoiceCloneFlow(t *testing.T) {
	h := New(nil, nil, stubCloner{})

	resp := serve(h, http.MethodPost, "/flows/voice-clone", `{"name":"Rose"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var out flow.VoiceCloneOutput
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "dummy-Rose", out.VoiceCloneID)
}

func TestUnconfiguredFlows(t *testing.T) {
	h := New(nil, nil, nil)

	for _, path := range []string{"/flows/tone", "/flows/speech", "/flows/voice-clone"} {
		resp := serve(h, http.MethodPost, path, `{}`)
		assert.Equal(t, http.StatusServiceUnavailable, resp.Code, path)
	}
}

func TestMalformedBody(t *testing.T) {
	h := New(stubTone{}, nil, nil)

	resp := serve(h, http.MethodPost, "/flows/tone", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

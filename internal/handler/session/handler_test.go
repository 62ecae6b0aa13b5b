package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/postscript/backend/internal/model/chat"
	"github.com/zhouzirui/postscript/backend/internal/model/flow"
	sessionService "github.com/zhouzirui/postscript/backend/internal/service/session"
)

type stubChat struct {
	err error
}

func (s stubChat) PersonalizeChatResponse(_ context.Context, in flow.ChatInput) (flow.ChatOutput, error) {
	if s.err != nil {
		return flow.ChatOutput{}, s.err
	}
	return flow.ChatOutput{PersonalizedResponse: "hey kiddo, " + in.ChatInput}, nil
}

type stubSpeech struct{}

func (stubSpeech) TextToSpeech(_ context.Context, _ flow.SpeechInput) (flow.SpeechOutput, error) {
	return flow.SpeechOutput{AudioDataURI: "data:audio/mpeg;base64,SUQz"}, nil
}

type stubMail struct {
	got flow.EmailInput
}

func (s *stubMail) EmailConversation(_ context.Context, in flow.EmailInput) (flow.EmailOutput, error) {
	s.got = in
	return flow.EmailOutput{Success: true, Message: "sent"}, nil
}

func setupRouter(deps sessionService.Dependencies, quota int) *chi.Mux {
	manager := sessionService.NewManager(deps, sessionService.Options{QuotaLimit: quota})
	handler := New(manager)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createActiveSession(t *testing.T, r http.Handler) string {
	t.Helper()

	resp := doJSON(r, http.MethodPost, "/sessions", "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var snap chat.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.State != chat.StateAwaitingPersona {
		t.Fatalf("expected awaiting_persona, got %s", snap.State)
	}

	base := "/sessions/" + snap.ID
	if resp := doJSON(r, http.MethodPut, base+"/persona/name", `{"name":"Dad"}`); resp.Code != http.StatusOK {
		t.Fatalf("set name: expected 200, got %d", resp.Code)
	}
	if resp := doJSON(r, http.MethodPut, base+"/persona/personality", `{"personalityProfile":"Dry jokes, calls me kiddo."}`); resp.Code != http.StatusOK {
		t.Fatalf("set personality: expected 200, got %d", resp.Code)
	}
	return snap.ID
}

func TestConversationFlow(t *testing.T) {
	mailer := &stubMail{}
	r := setupRouter(sessionService.Dependencies{Chat: stubChat{}, Speech: stubSpeech{}, Mail: mailer}, 5)
	id := createActiveSession(t, r)
	base := "/sessions/" + id

	resp := doJSON(r, http.MethodPost, base+"/messages", `{"text":"miss you"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var msg struct {
		Reply    chat.Message  `json:"reply"`
		Fallback bool          `json:"fallback"`
		Session  chat.Snapshot `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		t.Fatalf("decode message response: %v", err)
	}
	if msg.Reply.Text != "hey kiddo, miss you" || msg.Fallback {
		t.Fatalf("unexpected reply %+v", msg)
	}
	if msg.Session.DailyMessageCount != 1 || len(msg.Session.Messages) != 3 {
		t.Fatalf("unexpected session state %+v", msg.Session)
	}

	resp = doJSON(r, http.MethodPost, base+"/speech", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("speech: expected 200, got %d", resp.Code)
	}
	var sp struct {
		MessageID    string        `json:"messageId"`
		AudioDataURI string        `json:"audioDataUri"`
		Session      chat.Snapshot `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sp); err != nil {
		t.Fatalf("decode speech response: %v", err)
	}
	if sp.MessageID != msg.Reply.ID || sp.Session.LastAudio != sp.AudioDataURI {
		t.Fatalf("unexpected speech response %+v", sp)
	}

	resp = doJSON(r, http.MethodPost, base+"/export", `{"recipientEmail":"me@example.com"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", resp.Code)
	}
	if mailer.got.ClonedName != "Dad" || !strings.Contains(mailer.got.ConversationTranscript, "You: miss you") {
		t.Fatalf("unexpected mail input %+v", mailer.got)
	}

	if resp := doJSON(r, http.MethodDelete, base, ""); resp.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.Code)
	}
	if resp := doJSON(r, http.MethodGet, base, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.Code)
	}
}

func TestSubmitMessageQuotaExhausted(t *testing.T) {
	r := setupRouter(sessionService.Dependencies{Chat: stubChat{}}, 1)
	base := "/sessions/" + createActiveSession(t, r)

	resp := doJSON(r, http.MethodPost, base+"/messages", `{"text":"one"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var first struct {
		UpgradeRequired bool                   `json:"upgradeRequired"`
		UpgradeNotice   *sessionService.Notice `json:"upgradeNotice"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !first.UpgradeRequired || first.UpgradeNotice == nil {
		t.Fatalf("expected upgrade prompt on the last allowed message, got %+v", first)
	}

	resp = doJSON(r, http.MethodPost, base+"/messages", `{"text":"two"}`)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	var body struct {
		UpgradeRequired bool `json:"upgradeRequired"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.UpgradeRequired {
		t.Fatal("expected upgradeRequired in error body")
	}
}

func TestSubmitMessageFallbackOnFlowError(t *testing.T) {
	r := setupRouter(sessionService.Dependencies{Chat: stubChat{err: errors.New("ark timeout")}}, 5)
	base := "/sessions/" + createActiveSession(t, r)

	resp := doJSON(r, http.MethodPost, base+"/messages", `{"text":"hello?"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Reply    chat.Message           `json:"reply"`
		Fallback bool                   `json:"fallback"`
		Notice   *sessionService.Notice `json:"notice"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Fallback || body.Reply.Text != sessionService.FallbackReply || body.Notice == nil {
		t.Fatalf("expected fallback reply, got %+v", body)
	}
}

func TestRequestErrors(t *testing.T) {
	r := setupRouter(sessionService.Dependencies{Chat: stubChat{}}, 5)

	resp := doJSON(r, http.MethodPost, "/sessions", "")
	var snap chat.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	pending := "/sessions/" + snap.ID
	active := "/sessions/" + createActiveSession(t, r)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "unknown session", method: http.MethodGet, path: "/sessions/missing", want: http.StatusNotFound},
		{name: "personality before name", method: http.MethodPut, path: pending + "/persona/personality", body: `{"personalityProfile":"warm"}`, want: http.StatusConflict},
		{name: "blank name", method: http.MethodPut, path: pending + "/persona/name", body: `{"name":"  "}`, want: http.StatusBadRequest},
		{name: "message before persona", method: http.MethodPost, path: pending + "/messages", body: `{"text":"hi"}`, want: http.StatusConflict},
		{name: "unknown field", method: http.MethodPost, path: active + "/messages", body: `{"text":"hi","extra":1}`, want: http.StatusBadRequest},
		{name: "blank message", method: http.MethodPost, path: active + "/messages", body: `{"text":"   "}`, want: http.StatusBadRequest},
		{name: "nothing to speak", method: http.MethodPost, path: active + "/speech", want: http.StatusConflict},
		{name: "invalid email", method: http.MethodPost, path: active + "/export", body: `{"recipientEmail":"nope"}`, want: http.StatusBadRequest},
		{name: "empty transcript", method: http.MethodPost, path: active + "/export", body: `{"recipientEmail":"me@example.com"}`, want: http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(r, tc.method, tc.path, tc.body)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestUnconfiguredFlowsUnavailable(t *testing.T) {
	r := setupRouter(sessionService.Dependencies{Chat: stubChat{}}, 5)
	base := "/sessions/" + createActiveSession(t, r)

	if resp := doJSON(r, http.MethodPost, base+"/messages", `{"text":"hi"}`); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp := doJSON(r, http.MethodPost, base+"/speech", ""); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("speech: expected 503, got %d", resp.Code)
	}
	if resp := doJSON(r, http.MethodPost, base+"/export", `{"recipientEmail":"me@example.com"}`); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("export: expected 503, got %d", resp.Code)
	}
}

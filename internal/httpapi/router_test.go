package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/ai-chatbot/internal/ai"
	"github.com/suPer8Hu/ai-chatbot/internal/audit"
	"github.com/suPer8Hu/ai-chatbot/internal/chat"
)

type stubProvider struct {
	reply string
	err   error
}

func (p stubProvider) Chat(context.Context, []ai.Message) (string, error) {
	return p.reply, p.err
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, p ai.Provider) (http.Handler, *chat.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := chat.NewService(chat.NewStore(), p)
	return NewRouter(svc), svc
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body=%s", w.Body.String())
	return w, env
}

func TestPing(t *testing.T) {
	srv, _ := newTestServer(t, stubProvider{})
	w, env := do(t, srv, http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, env.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSendMessage_Success(t *testing.T) {
	srv, svc := newTestServer(t, stubProvider{reply: "Hello!"})

	w, env := do(t, srv, http.MethodPost, "/chat/messages", `{"message":"Hi"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		SessionID uint64        `json:"session_id"`
		User      chat.Message  `json:"user_message"`
		Reply     *chat.Message `json:"reply_message"`
		Failed    bool          `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, uint64(1), data.SessionID)
	require.Equal(t, "Hi", data.User.Content)
	require.NotNil(t, data.Reply)
	require.Equal(t, "Hello!", data.Reply.Content)
	require.False(t, data.Failed)

	msgs, err := svc.Store().Messages()
	require.NoError(t, err)
	require.Len(t, msgs, 3)
}

func TestSendMessage_UpstreamFailureIsFallback(t *testing.T) {
	srv, svc := newTestServer(t, stubProvider{err: ai.ErrCompletionFailed})

	w, env := do(t, srv, http.MethodPost, "/chat/messages", `{"message":"Hi"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Reply  chat.Message `json:"reply_message"`
		Failed bool         `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.True(t, data.Failed)
	require.Equal(t, chat.FallbackText, data.Reply.Content)
	require.False(t, svc.Store().Sending())
}

func TestSendMessage_Rejections(t *testing.T) {
	srv, _ := newTestServer(t, stubProvider{reply: "x"})

	w, env := do(t, srv, http.MethodPost, "/chat/messages", `{"message":"   "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, 10002, env.Code)

	w, env = do(t, srv, http.MethodPost, "/chat/messages", `{"message":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, 10001, env.Code)
}

func TestSendMessage_Conflict(t *testing.T) {
	srv, svc := newTestServer(t, stubProvider{reply: "x"})
	// open a send without finishing it
	_, _, err := svc.Store().AppendUserMessage("pending")
	require.NoError(t, err)

	w, env := do(t, srv, http.MethodPost, "/chat/messages", `{"message":"Hi"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, 40901, env.Code)

	w, env = do(t, srv, http.MethodGet, "/chat/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Messages []chat.Message `json:"messages"`
		Sending  bool           `json:"sending"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.True(t, data.Sending)
	require.Len(t, data.Messages, 2)
}

type sessionsData struct {
	Sessions []chat.Session `json:"sessions"`
	ActiveID *uint64        `json:"active_id"`
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, stubProvider{reply: "x"})

	w, env := do(t, srv, http.MethodPost, "/chat/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Session  chat.Session   `json:"session"`
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Equal(t, uint64(2), created.Session.ID)
	require.Equal(t, "New Chat", created.Session.Title)
	require.Len(t, created.Messages, 1)
	require.Equal(t, chat.GreetingText, created.Messages[0].Content)

	_, env = do(t, srv, http.MethodGet, "/chat/sessions", "")
	var list sessionsData
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Sessions, 2)
	require.Equal(t, uint64(2), *list.ActiveID)

	w, _ = do(t, srv, http.MethodPut, "/chat/sessions/1/active", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, srv, http.MethodPut, "/chat/sessions/99/active", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, 40401, env.Code)

	w, env = do(t, srv, http.MethodDelete, "/chat/sessions/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Sessions, 1)
	require.Equal(t, uint64(2), *list.ActiveID)

	// unknown id is a no-op
	w, env = do(t, srv, http.MethodDelete, "/chat/sessions/42", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Sessions, 1)

	w, env = do(t, srv, http.MethodDelete, "/chat/sessions/abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, 10003, env.Code)

	do(t, srv, http.MethodDelete, "/chat/sessions/2", "")
	_, env = do(t, srv, http.MethodGet, "/chat/sessions", "")
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Empty(t, list.Sessions)
	require.Nil(t, list.ActiveID)

	w, env = do(t, srv, http.MethodGet, "/chat/messages", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, 40402, env.Code)

	w, env = do(t, srv, http.MethodPost, "/chat/messages", `{"message":"anyone?"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, 40402, env.Code)
}

func TestNoRouteAndMethod(t *testing.T) {
	srv, _ := newTestServer(t, stubProvider{})

	w, env := do(t, srv, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, 40400, env.Code)

	w, env = do(t, srv, http.MethodPatch, "/chat/messages", "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.Equal(t, 40500, env.Code)
}

type panicProvider struct{}

func (panicProvider) Chat(context.Context, []ai.Message) (string, error) {
	panic(errors.New("provider exploded"))
}

func TestRecovery(t *testing.T) {
	srv, svc := newTestServer(t, panicProvider{})

	w, env := do(t, srv, http.MethodPost, "/chat/messages", `{"message":"Hi"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 50000, env.Code)
	require.False(t, svc.Store().Sending())
}

func TestListCompletions(t *testing.T) {
	srv, _ := newTestServer(t, stubProvider{reply: "x"})
	w, env := do(t, srv, http.MethodGet, "/audit/completions?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, env.Code)
}

type publishOnlyRecorder struct{ audit.NopRecorder }

func (publishOnlyRecorder) Recent(context.Context, int) ([]audit.Record, error) {
	return nil, audit.ErrRecentUnsupported
}

func TestListCompletions_PublishOnlyDriver(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := chat.NewService(chat.NewStore(), stubProvider{reply: "x"}, chat.WithRecorder(publishOnlyRecorder{}))
	srv := NewRouter(svc)

	w, env := do(t, srv, http.MethodGet, "/audit/completions", "")
	require.Equal(t, http.StatusNotImplemented, w.Code)
	require.Equal(t, 50101, env.Code)
}

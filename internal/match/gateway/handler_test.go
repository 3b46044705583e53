package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/auth"
	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/match"
	"github.com/CS3219-AY2324S1/ay2324s1-course-assessment-g23/internal/match/gateway"
)

// staticSessions resolves tokens from a fixed table.
type staticSessions map[string]string

func (s staticSessions) ValidateSession(ctx context.Context, token string) (string, error) {
	if userID, ok := s[token]; ok {
		return userID, nil
	}
	return "", auth.ErrInvalidSession
}

// staticQuestions serves a fixed catalog.
type staticQuestions []match.Question

func (s staticQuestions) List(ctx context.Context) ([]match.Question, error) {
	return s, nil
}

type outcome struct {
	IsMatched  bool   `json:"is_matched"`
	Detail     string `json:"detail"`
	UserID     string `json:"user_id"`
	RoomID     string `json:"room_id"`
	QuestionID string `json:"question_id"`
}

func newTestServer(t *testing.T, queueTimeout time.Duration) *httptest.Server {
	t.Helper()

	engine := match.NewEngine(match.Config{
		Questions: staticQuestions{
			{ID: "q1", Complexity: "Easy"},
			{ID: "q7", Complexity: "Medium"},
		},
		QueueTimeout: queueTimeout,
	})
	sessions := staticSessions{"tok1": "u1", "tok2": "u2"}
	handler := gateway.NewHandler(engine, sessions, gateway.DefaultConfig())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := strings.Replace(server.URL, "http", "ws", 1) + "/matching/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestHandler_RejectsInvalidSession(t *testing.T) {
	server := newTestServer(t, time.Minute)

	url := strings.Replace(server.URL, "http", "ws", 1) + "/matching/ws?token=bogus"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Nil(t, conn)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_RejectsMissingCredential(t *testing.T) {
	server := newTestServer(t, time.Minute)

	url := strings.Replace(server.URL, "http", "ws", 1) + "/matching/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_MatchFlow(t *testing.T) {
	server := newTestServer(t, time.Minute)

	conn1 := dial(t, server, "tok1")
	conn2 := dial(t, server, "tok2")

	queue := map[string]string{"action": "queue", "complexity": "medium"}
	require.NoError(t, conn1.WriteJSON(queue))
	require.NoError(t, conn2.WriteJSON(queue))

	var out1, out2 outcome
	require.NoError(t, conn1.ReadJSON(&out1))
	require.NoError(t, conn2.ReadJSON(&out2))

	assert.True(t, out1.IsMatched)
	assert.True(t, out2.IsMatched)
	assert.Equal(t, "Match found!", out1.Detail)
	assert.Equal(t, "q7", out1.QuestionID)
	assert.Equal(t, "q7", out2.QuestionID)
	assert.NotEmpty(t, out1.RoomID)
	assert.Equal(t, out1.RoomID, out2.RoomID)

	// Each side sees the other's identity.
	got := map[string]bool{out1.UserID: true, out2.UserID: true}
	assert.Equal(t, map[string]bool{"u1": true, "u2": true}, got)
	assert.NotEqual(t, out1.UserID, out2.UserID)

	// The engine closes both connections after delivering the outcome.
	_, _, err := conn1.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestHandler_CancelFlow(t *testing.T) {
	server := newTestServer(t, time.Minute)

	conn := dial(t, server, "tok1")
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "queue", "complexity": "easy"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "cancel"}))

	var out outcome
	require.NoError(t, conn.ReadJSON(&out))
	assert.False(t, out.IsMatched)
	assert.Equal(t, "Queuing cancelled.", out.Detail)

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestHandler_TimeoutFlow(t *testing.T) {
	server := newTestServer(t, 100*time.Millisecond)

	conn := dial(t, server, "tok1")
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "queue", "complexity": "easy"}))

	var out outcome
	require.NoError(t, conn.ReadJSON(&out))
	assert.False(t, out.IsMatched)
	assert.Equal(t, "Timed out. Couldn't find a match.", out.Detail)
}

func TestHandler_SurvivesProtocolErrors(t *testing.T) {
	server := newTestServer(t, time.Minute)

	conn := dial(t, server, "tok1")

	// None of these may kill the request loop.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "launch"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "queue", "complexity": "brutal"}))

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "queue", "complexity": "easy"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "cancel"}))

	var out outcome
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "Queuing cancelled.", out.Detail)
}

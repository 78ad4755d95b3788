package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialChat(t *testing.T, svc *fakeService) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewRouter(RouterConfig{Service: svc, AllowedOrigins: []string{"*"}}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) serverFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f serverFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestChatSocketKeepsSession(t *testing.T) {
	svc := newFakeService()
	conn := dialChat(t, svc)

	require.NoError(t, conn.WriteJSON(clientFrame{Message: "how is BTC?"}))
	assert.Equal(t, FrameStatus, readFrame(t, conn).Type)

	reply := readFrame(t, conn)
	require.Equal(t, FrameReply, reply.Type)
	require.NotNil(t, reply.Reply)
	assert.Equal(t, "reply to how is BTC?", reply.Reply.Response)

	require.NoError(t, conn.WriteJSON(clientFrame{Message: "and tomorrow?"}))
	assert.Equal(t, FrameStatus, readFrame(t, conn).Type)
	assert.Equal(t, FrameReply, readFrame(t, conn).Type)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, []string{"", "BTC"}, svc.sessions)
}

func TestChatSocketReportsErrors(t *testing.T) {
	conn := dialChat(t, newFakeService())

	require.NoError(t, conn.WriteJSON(clientFrame{Message: "fail"}))
	assert.Equal(t, FrameStatus, readFrame(t, conn).Type)

	f := readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, "I encountered an error: internal error", f.Message)

	require.NoError(t, conn.WriteJSON(clientFrame{Message: "still there?"}))
	assert.Equal(t, FrameStatus, readFrame(t, conn).Type)
	assert.Equal(t, FrameReply, readFrame(t, conn).Type)
}

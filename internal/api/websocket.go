package api

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cryptosys/internal/domain/analysis"
	"cryptosys/internal/metrics"
	"cryptosys/internal/services/orchestrator"
	"cryptosys/pkg/errors"
)

const (
	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketPingPeriod = socketPongWait * 9 / 10
	socketMaxMessage = 8 << 10
)

// Server frame types on /ws/chat
const (
	FrameStatus = "status"
	FrameReply  = "reply"
	FrameError  = "error"
)

type clientFrame struct {
	Message string `json:"message"`
}

type serverFrame struct {
	Type    string              `json:"type"`
	Message string              `json:"message,omitempty"`
	Reply   *analysis.ChatReply `json:"reply,omitempty"`
}

type socketConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *socketConn) write(frame serverFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
	return c.conn.WriteJSON(frame)
}

func (c *socketConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait))
}

func newUpgrader(allowed []string) websocket.Upgrader {
	wildcard := slices.Contains(allowed, "*")
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || wildcard || slices.Contains(allowed, origin)
		},
	}
}

// handleChatSocket runs one chat session per connection. Messages are
// answered in order; each answer is preceded by a status frame.
func (h *Handler) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	sc := &socketConn{conn: conn}

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()
	defer conn.Close()

	conn.SetReadLimit(socketMaxMessage)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(socketPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := sc.ping(); err != nil {
					return
				}
			}
		}
	}()

	ctx := r.Context()
	session := &orchestrator.Session{}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))

		var in clientFrame
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Chat socket closed", "error", err)
			}
			return
		}

		if err := sc.write(serverFrame{Type: FrameStatus, Message: "Thinking..."}); err != nil {
			return
		}

		reply, err := h.svc.Chat(ctx, session, in.Message)
		if err != nil {
			h.log.Error("Chat message failed", "symbol", session.Symbol, "error", err)
			if werr := sc.write(serverFrame{Type: FrameError, Message: "I encountered an error: " + errors.PublicMessage(err)}); werr != nil {
				return
			}
			continue
		}
		if err := sc.write(serverFrame{Type: FrameReply, Reply: reply}); err != nil {
			return
		}
	}
}

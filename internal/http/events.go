package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"castenobar/internal/account"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// GET /v1/auth/events
//
// Streams the session events of the calling token until it is signed out,
// refreshed or expires, then closes.
func (s *Server) authEvents(c *gin.Context) {
	sess := sessionFrom(c)
	// Subscribe before the handshake completes so nothing published after
	// the client sees the upgrade is missed.
	events, unsubscribe := s.accounts.Hub().Subscribe(sess.TokenID)
	defer unsubscribe()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Client frames are ignored; reading surfaces the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	expiry := time.NewTimer(time.Until(sess.ExpiresAt))
	defer expiry.Stop()
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := s.writeEvent(conn, e); err != nil {
				return
			}
			if e.Type == account.EventSignedOut || e.Type == account.EventTokenRefreshed {
				closeSocket(conn)
				return
			}
		case <-expiry.C:
			_ = s.writeEvent(conn, account.Event{Type: account.EventExpired})
			closeSocket(conn)
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, e account.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(e); err != nil {
		s.logger.Warn("websocket send failed", zap.Error(err))
		return err
	}
	return nil
}

func closeSocket(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}

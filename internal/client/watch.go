package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"castenobar/internal/models"
	"castenobar/internal/session"
)

type wireEvent struct {
	Event   string          `json:"event"`
	Session *models.Session `json:"session,omitempty"`
}

// Watch streams server-side session events for the current token into the
// OnSessionChange subscribers. It returns when the server closes the
// stream, the token stops being valid or ctx is done.
func (c *Client) Watch(ctx context.Context) error {
	token := c.token()
	if token == "" {
		return errors.New("watch: not signed in")
	}
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/v1/auth/events"
	header := http.Header{"Authorization": {"Bearer " + token}}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("watch: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var e wireEvent
		if err := conn.ReadJSON(&e); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
		c.handleEvent(token, e)
	}
}

func (c *Client) handleEvent(watched string, e wireEvent) {
	c.logger.Debug("session event", zap.String("event", e.Event))
	switch session.Event(e.Event) {
	case session.EventSignedOut, session.EventExpired:
		if c.token() != watched {
			return
		}
		if err := c.forget(); err != nil {
			c.logger.Warn("clear stored session", zap.Error(err))
		}
		c.publish(session.Change{Event: session.Event(e.Event)})
	case session.EventTokenRefreshed:
		if e.Session == nil || c.token() == e.Session.AccessToken {
			return
		}
		if err := c.adopt(e.Session); err != nil {
			c.logger.Warn("store refreshed session", zap.Error(err))
		}
		c.publish(session.Change{Event: session.EventTokenRefreshed, Session: e.Session})
	}
}

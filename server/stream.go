package server

import (
	"net/http"
	"time"

	"github.com/digineo/go-pinger/monitor"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// stream sends the current status and then every update as a JSON
// message until the client goes away.
func (s *Server) stream(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		respondError(c, http.StatusBadRequest, "Require WebSocket upgrade")
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.coord.Subscribe(1)
	defer sub.Close()

	// the client does not send anything, reading only detects the close
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(u monitor.Update) bool {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		v := newStatusView(u.Status, u.Batch, s.coord.Config().Paused)
		if err := conn.WriteJSON(v); err != nil {
			s.logger.Info("websocket write failed", zap.Error(err))
			return false
		}
		return true
	}

	if !send(monitor.Update{Status: s.coord.Status(), Batch: s.coord.Batch()}) {
		return
	}
	for {
		select {
		case u, ok := <-sub.C:
			if !ok || !send(u) {
				return
			}
		case <-gone:
			return
		case <-s.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(time.Second))
			return
		}
	}
}

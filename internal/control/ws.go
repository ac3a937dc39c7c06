package control

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Push cadence for status and level frames.
	pushPeriod = 500 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	// The server binds to loopback only; any local page may subscribe.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// StatusFrame is one websocket push of live session state.
type StatusFrame struct {
	StatusResponse
	InputLevel  uint32 `json:"input_level"`
	OutputLevel uint32 `json:"output_level"`
}

// streamStatus pushes status and level frames to a subscribed client until
// it disconnects. This is a push alternative to polling /status and
// /levels; like /levels, each frame drains the level peaks.
func (s *Server) streamStatus(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}
	s.logger.Info("Status stream subscribed", zap.String("remote", conn.RemoteAddr().String()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pushPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-done:
			s.logger.Info("Status stream closed")
			return nil
		case <-ticker.C:
			frame := StatusFrame{
				StatusResponse: s.statusResponse(),
				InputLevel:     s.session.InputLevel.Take(),
				OutputLevel:    s.session.OutputLevel.Take(),
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				s.logger.Info("Status stream closed", zap.Error(err))
				return nil
			}
		}
	}
}

package server

import (
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/pkg/feed"
)

// FrameHandler streams replay frames to websocket clients
type FrameHandler struct {
	feed          *feed.Feed
	logger        zerolog.Logger
	pingPeriod    time.Duration
	writeDeadline time.Duration
	upgrader      websocket.Upgrader
}

// NewFrameHandler creates a frame handler
func NewFrameHandler(f *feed.Feed, logger zerolog.Logger) *FrameHandler {
	return &FrameHandler{
		feed:          f,
		logger:        logger.With().Str("handler", "frames").Logger(),
		pingPeriod:    30 * time.Second,
		writeDeadline: 10 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Stream opens a websocket and forwards every frame of the game until the
// client disconnects. The code "*" streams all games.
// Route: GET /api/games/{code}/frames
func (h *FrameHandler) Stream(c *gin.Context) {
	code := c.Param("code")
	if code == "*" {
		code = ""
	}

	// Subscribe before the handshake completes so no frame is missed
	frames, cancel := h.feed.Listen(c.Request.Context(), code)
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close() //nolint:errcheck

	done := make(chan struct{})

	// Detect connection close
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.logClose(err)
				return
			}
		}
	}()

	ping := time.NewTicker(h.pingPeriod)
	defer ping.Stop()

	h.logger.Debug().Str("game_code", c.Param("code")).Msg("Frame stream opened")
	for {
		select {
		case <-done:
			return
		case <-ping.C:
			deadline := time.Now().Add(h.writeDeadline)
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
				h.logger.Debug().Err(err).Msg("Failed to send ping")
				return
			}
		case fr, ok := <-frames:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(h.writeDeadline)) //nolint:errcheck
			if err := conn.WriteJSON(fr); err != nil {
				h.logger.Debug().Err(err).Str("game_code", fr.GameCode).Msg("Failed to write frame")
				return
			}
		}
	}
}

func (h *FrameHandler) logClose(err error) {
	if !websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		h.logger.Debug().Err(err).Msg("WebSocket closed normally")
		return
	}
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		h.logger.Warn().Err(err).Msg("WebSocket connection closed unexpectedly (EOF)")
		return
	}
	h.logger.Warn().Err(err).Msg("WebSocket connection closed unexpectedly")
}

package handlers

import (
	"net/http"

	"lockproxy/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler streams release request transitions to operators
type WebSocketHandler struct {
	feed     *services.ReviewFeed
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(feed *services.ReviewFeed, logger *logrus.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		feed:   feed,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleReviewFeed GET /api/ws/review-feed
func (h *WebSocketHandler) HandleReviewFeed(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.WithError(err).Warn("❌ WebSocket upgrade failed")
		return
	}

	h.feed.Serve(conn, caller.Hex())
}

package websocket

import (
	"net/http"
	"time"

	"github.com/aescanero/challenge/internal/application/workers"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SnapshotSource provides pool counters on demand
type SnapshotSource interface {
	Snapshot() workers.Snapshot
}

// Handler handles WebSocket connections
type Handler struct {
	source   SnapshotSource
	interval time.Duration
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler that pushes a snapshot every interval
func NewHandler(source SnapshotSource, interval time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// HandlePoolStream streams pool snapshots until the client goes away
func (h *Handler) HandlePoolStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("client", c.ClientIP()))

	// Reads are only used to notice the close frame
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		if err := h.send(conn); err != nil {
			h.logger.Debug("WebSocket write failed", zap.Error(err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-closed:
			h.logger.Info("WebSocket connection closed",
				zap.String("client", c.ClientIP()))
			return
		case <-ticker.C:
		}
	}
}

func (h *Handler) send(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(h.source.Snapshot())
}

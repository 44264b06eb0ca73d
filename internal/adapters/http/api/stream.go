package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	service "github.com/okian/arenasync/internal/app"
	"github.com/okian/arenasync/pkg/logger"
)

const (
	defaultStreamBuffer   = 256
	defaultWriteTimeout   = 5 * time.Second
	defaultPingInterval   = 30 * time.Second
	defaultReadTimeout    = 60 * time.Second
	defaultMaxMessageSize = 512
)

type streamConfig struct {
	buffer       int
	writeTimeout time.Duration
	pingInterval time.Duration
	readTimeout  time.Duration
	checkOrigin  func(r *http.Request) bool
}

func defaultStreamConfig() streamConfig {
	return streamConfig{
		buffer:       defaultStreamBuffer,
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		readTimeout:  defaultReadTimeout,
		checkOrigin:  func(*http.Request) bool { return true },
	}
}

// StreamHandler pushes session updates over a websocket.
type StreamHandler struct {
	deps     Dependencies
	cfg      streamConfig
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// newStreamHandler creates a stream handler from cfg.
func newStreamHandler(deps Dependencies, cfg streamConfig) *StreamHandler {
	return &StreamHandler{
		deps: deps,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.checkOrigin,
		},
		logger: logger.Get().Named("stream"),
	}
}

// HandleStream handles GET /stream. The current view is sent first, then
// every update until the client leaves or the session is torn down.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		h.logger.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := h.deps.Subscribe(h.cfg.buffer)
	defer unsubscribe()

	h.logger.Info(ctx, "stream client connected", logger.String("remote", r.RemoteAddr))
	defer h.logger.Info(ctx, "stream client disconnected", logger.String("remote", r.RemoteAddr))

	go h.readPump(conn, cancel)

	view := h.deps.View()
	first := service.Update{Kind: service.UpdateView, At: view.UpdatedAt, View: &view}
	if view.Event != nil {
		first.EventID = view.Event.ID
	}
	if err := h.write(conn, first); err != nil {
		return
	}

	ping := time.NewTicker(h.cfg.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.writeTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := h.write(conn, u); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Debug(ctx, "ping failed", logger.Error(err))
				return
			}
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, u service.Update) error {
	_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.writeTimeout))
	if err := conn.WriteJSON(u); err != nil {
		h.logger.Debug(context.Background(), "stream write failed", logger.Error(err))
		return err
	}
	return nil
}

// readPump discards client frames and cancels the stream once the peer goes away.
func (h *StreamHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(defaultMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.readTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug(context.Background(), "unexpected stream close", logger.Error(err))
			}
			return
		}
	}
}

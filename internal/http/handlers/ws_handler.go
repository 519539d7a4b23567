package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/danishnav/team-catalog/internal/auth"
	"github.com/danishnav/team-catalog/internal/config"
	"github.com/danishnav/team-catalog/internal/events"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WSHub relays notifier events to connected operators.
type WSHub struct {
	cfg         *config.Config
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:         cfg,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[string][]*websocket.Conn),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.StreamNotify, h.broadcast)
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for operator, conns := range h.connections {
		for _, conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug("ws write failed", zap.String("operator", operator), zap.Error(err))
			}
		}
	}
}

func (h *WSHub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.connections {
		n += len(conns)
	}
	return n
}

func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	operator, ok := h.authenticate(conn.Query("token"))
	if !ok {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	h.mu.Lock()
	h.connections[operator] = append(h.connections[operator], conn)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		conns := h.connections[operator]
		for i, c := range conns {
			if c == conn {
				h.connections[operator] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.connections[operator]) == 0 {
			delete(h.connections, operator)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// Read loop keeps the connection open until the client leaves.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *WSHub) authenticate(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	claims, err := auth.ParseJWT(h.cfg.JWTSecret, token)
	if err != nil || claims.Role != auth.RoleOperator {
		return "", false
	}
	if len(h.cfg.OperatorKeys) > 0 && !h.cfg.IsOperator(claims.Subject) {
		return "", false
	}
	return claims.Subject, true
}

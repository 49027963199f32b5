package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/truckdock/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultSendBuffer   = 64
	defaultWriteTimeout = 10 * time.Second
	defaultPongTimeout  = 60 * time.Second
	maxInboundMessage   = 4096
)

// ErrHubClosed 推送中心已关闭
var ErrHubClosed = errors.New("notifier hub closed")

// HubOptions 推送中心配置
type HubOptions struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PongTimeout  time.Duration
	CheckOrigin  func(r *http.Request) bool
}

// Hub 基于 WebSocket 的事件广播中心
// 每个连接拥有独立的发送缓冲，写满或写失败的连接会被剔除，不影响其他连接
type Hub struct {
	opts     HubOptions
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	done    chan struct{}
}

type client struct {
	id      string
	subject string
	conn    *websocket.Conn
	send    chan []byte
	once    sync.Once
}

// NewHub 创建推送中心
func NewHub(opts HubOptions) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = defaultPongTimeout
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[*client]struct{}),
		done:    make(chan struct{}),
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS 升级连接并注册为订阅端，subject 仅用于日志
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, subject string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{
		id:      uuid.NewString(),
		subject: subject,
		conn:    conn,
		send:    make(chan []byte, h.opts.SendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	logger.Infow("notifier_client_connected", "client_id", c.id, "subject", subject, "clients", total)
	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// Broadcast 序列化一次后非阻塞投递给全部连接
func (h *Hub) Broadcast(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrHubClosed
	}
	var stale []*client
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.remove(c, "send_buffer_full")
	}
	return nil
}

// Run 阻塞直到 ctx 结束，随后关闭所有连接
func (h *Hub) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-h.done:
	}
	h.Close()
	return nil
}

// Close 关闭推送中心与全部连接
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.done)
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) remove(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}
	c.close()
	logger.Infow("notifier_client_pruned", "client_id", c.id, "subject", c.subject, "reason", reason, "clients", total)
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

func (h *Hub) writePump(c *client) {
	pingInterval := h.opts.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.remove(c, "write_failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c, "ping_failed")
				return
			}
		}
	}
}

// readPump 只用于感知断开与处理 pong，入站消息直接丢弃
func (h *Hub) readPump(c *client) {
	defer h.remove(c, "disconnected")

	c.conn.SetReadLimit(maxInboundMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugw("notifier_client_read_failed", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

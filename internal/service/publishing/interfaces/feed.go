// internal/service/publishing/interfaces/feed.go
package interfaces

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dealwire/internal/pkg/logger"
	"dealwire/internal/service/publishing/application"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 内部运营面板使用，允许所有来源
		return true
	},
}

// FeedHub 把发布成功事件实时推给按 userId 订阅的 websocket 客户端。
// 实现 worker 的 EventSink 端口；推送是尽力而为的，慢客户端直接断开。
type FeedHub struct {
	clients    map[string][]*feedClient
	register   chan *feedClient
	unregister chan *feedClient
	events     chan application.PublicationEvent
	lock       sync.RWMutex
}

type feedClient struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients:    make(map[string][]*feedClient),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		events:     make(chan application.PublicationEvent, 64),
	}
}

// PublicationRecorded 实现 application.EventSink。满了就丢，绝不阻塞 worker。
func (h *FeedHub) PublicationRecorded(event application.PublicationEvent) {
	select {
	case h.events <- event:
	default:
	}
}

// Run 是 hub 的事件循环，通常在组装根里 go h.Run()。
func (h *FeedHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client.userID] = append(h.clients[client.userID], client)
			h.lock.Unlock()
		case client := <-h.unregister:
			h.lock.Lock()
			subs := h.clients[client.userID]
			for i, c := range subs {
				if c == client {
					h.clients[client.userID] = append(subs[:i], subs[i+1:]...)
					close(c.send)
					break
				}
			}
			h.lock.Unlock()
		case event := <-h.events:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			h.lock.RLock()
			for _, client := range h.clients[event.UserID] {
				select {
				case client.send <- payload:
				default:
					// 慢客户端不拖累广播
				}
			}
			h.lock.RUnlock()
		}
	}
}

// ServeWS 把 HTTP 连接升级为该用户的事件订阅。
func (h *FeedHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &feedClient{userID: userID, conn: conn, send: make(chan []byte, 32)}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *feedClient) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *feedClient) readPump(h *FeedHub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		// 只消费心跳，客户端不发业务数据
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

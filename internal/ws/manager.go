// Package ws доставляет события чатов подключенным браузерам.
// Темой подписки служит id чата.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"character-chat-server/internal/models"
	"character-chat-server/internal/service"
)

// Compile-time check
var _ service.Notifier = (*Manager)(nil)

// Типы событий, уходящих клиенту.
const (
	EventTyping     = "typing"
	EventNewMessage = "new_message"
)

// Event - конверт исходящего WebSocket-сообщения.
type Event struct {
	Type    string `json:"type"`
	ChatID  string `json:"chat_id"`
	Payload any    `json:"payload,omitempty"`
}

// Manager ведет реестр соединений и рассылку событий по чатам.
type Manager struct {
	clients    map[uuid.UUID]*client
	register   chan *client
	unregister chan *client
	events     chan Event
	logger     *zap.Logger
	mu         sync.RWMutex
}

type client struct {
	id      uuid.UUID
	conn    *websocket.Conn
	manager *Manager
	send    chan []byte
	chats   map[string]bool
	mu      sync.RWMutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Источники фильтрует CORS-мидлварь уровнем выше
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewManager creates a websocket manager. Call Start before serving.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		clients:    make(map[uuid.UUID]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		events:     make(chan Event, 64),
		logger:     logger.Named("WSManager"),
	}
}

// Start запускает цикл рассылки в отдельной горутине.
func (m *Manager) Start() {
	go m.run()
}

func (m *Manager) run() {
	for {
		select {
		case c := <-m.register:
			m.mu.Lock()
			m.clients[c.id] = c
			m.mu.Unlock()
			m.logger.Debug("Client connected", zap.String("clientID", c.id.String()))

		case c := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[c.id]; ok {
				close(c.send)
				delete(m.clients, c.id)
				m.logger.Debug("Client disconnected", zap.String("clientID", c.id.String()))
			}
			m.mu.Unlock()

		case event := <-m.events:
			data, err := json.Marshal(event)
			if err != nil {
				m.logger.Error("Failed to marshal websocket event", zap.Error(err))
				continue
			}
			m.mu.Lock()
			for id, c := range m.clients {
				if !c.subscribed(event.ChatID) {
					continue
				}
				select {
				case c.send <- data:
				default:
					// Медленный клиент, отключаем
					close(c.send)
					delete(m.clients, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

// NotifyTyping сообщает подписчикам чата, что персонаж печатает.
func (m *Manager) NotifyTyping(chatID, senderName string) {
	m.events <- Event{
		Type:    EventTyping,
		ChatID:  chatID,
		Payload: map[string]string{"sender_name": senderName},
	}
}

// NotifyMessage доставляет готовый ответ персонажа подписчикам чата.
func (m *Manager) NotifyMessage(chatID string, msg models.MessageDTO) {
	m.events <- Event{
		Type:    EventNewMessage,
		ChatID:  chatID,
		Payload: msg,
	}
}

// Handler апгрейдит соединение. Подписка на чаты приходит командами
// {"action": "subscribe", "chat_id": "..."} уже по открытому сокету.
func (m *Manager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			m.logger.Warn("Failed to upgrade connection", zap.Error(err))
			return
		}

		c := &client{
			id:      uuid.New(),
			conn:    conn,
			manager: m,
			send:    make(chan []byte, 256),
			chats:   make(map[string]bool),
		}
		if chatID := r.URL.Query().Get("chat_id"); chatID != "" {
			c.chats[chatID] = true
		}

		m.register <- c
		go c.readPump()
		go c.writePump()
	})
}

func (c *client) subscribed(chatID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chats[chatID]
}

func (c *client) readPump() {
	defer func() {
		c.manager.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.manager.logger.Debug("Read error", zap.Error(err))
			}
			return
		}

		var cmd struct {
			Action string `json:"action"`
			ChatID string `json:"chat_id"`
		}
		if err := json.Unmarshal(message, &cmd); err != nil {
			continue
		}

		c.mu.Lock()
		switch cmd.Action {
		case "subscribe":
			c.chats[cmd.ChatID] = true
		case "unsubscribe":
			delete(c.chats, cmd.ChatID)
		}
		c.mu.Unlock()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

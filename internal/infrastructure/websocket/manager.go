package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"campusmart/internal/infrastructure/metrics"
	"campusmart/pkg/logger"
)

// Client represents a WebSocket connection client
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	rooms map[string]bool
}

func NewClient(id, userID string, conn *websocket.Conn) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		rooms:  make(map[string]bool),
	}
}

// Authorizer decides whether a user may subscribe to a conversation.
type Authorizer func(ctx context.Context, userID, conversationID string) error

// Manager tracks every connected client per user and delivers events to them. With a
// Broker attached, events are published through it and every instance delivers to its
// own clients.
type Manager struct {
	clients    map[string]map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex

	broker    Broker
	authorize Authorizer
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// WithBroker routes events through broker.
func (m *Manager) WithBroker(broker Broker) *Manager {
	m.broker = broker
	return m
}

// SetAuthorizer sets the check run on join_conversation requests.
func (m *Manager) SetAuthorizer(authorize Authorizer) {
	m.authorize = authorize
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	if m.broker != nil {
		go func() {
			err := m.broker.Subscribe(ctx, func(payload []byte) {
				var env envelope
				if err := json.Unmarshal(payload, &env); err != nil {
					logger.Warn("Dropping malformed broker payload: %v", err)
					return
				}
				m.deliver(env)
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("Websocket broker subscription ended: %v", err)
			}
		}()
	}

	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if m.clients[client.UserID] == nil {
					m.clients[client.UserID] = make(map[string]*Client)
				}
				m.clients[client.UserID][client.ID] = client
				m.mutex.Unlock()
				metrics.WebsocketClients.Inc()
				logger.Debug("Client registered: user %s connection %s", client.UserID, client.ID)

			case client := <-m.Unregister:
				m.remove(client)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Attach registers client with the main loop. It reports false once ctx, the context
// the manager was started with, is done.
func (m *Manager) Attach(ctx context.Context, client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-ctx.Done():
		return false
	}
}

// Detach unregisters client, giving up once ctx is done.
func (m *Manager) Detach(ctx context.Context, client *Client) {
	select {
	case m.Unregister <- client:
	case <-ctx.Done():
	}
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	conns, ok := m.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client.ID]; !ok {
		return
	}
	delete(conns, client.ID)
	if len(conns) == 0 {
		delete(m.clients, client.UserID)
	}
	close(client.Send)
	metrics.WebsocketClients.Dec()
	logger.Debug("Client unregistered: user %s connection %s", client.UserID, client.ID)
}

// Notify delivers event to every connection of the given users.
func (m *Manager) Notify(ctx context.Context, userIDs []string, event Event) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	env := envelope{UserIDs: userIDs, Event: event}

	if m.broker != nil {
		payload, err := json.Marshal(env)
		if err == nil {
			if err = m.broker.Publish(ctx, payload); err == nil {
				return
			}
		}
		logger.Warn("Broker publish failed, delivering locally: %v", err)
	}
	m.deliver(env)
}

// ConnectedClients returns the number of live connections for userID.
func (m *Manager) ConnectedClients(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID])
}

func (m *Manager) deliver(env envelope) {
	data, err := json.Marshal(env.Event)
	if err != nil {
		logger.Error("Failed to encode %s event: %v", env.Event.Type, err)
		return
	}

	var stale []*Client
	m.mutex.RLock()
	for _, userID := range env.UserIDs {
		for _, client := range m.clients[userID] {
			if !client.wants(env.Event) {
				continue
			}
			select {
			case client.Send <- data:
				metrics.EventsPushed.WithLabelValues(env.Event.Type).Inc()
			default:
				stale = append(stale, client)
			}
		}
	}
	m.mutex.RUnlock()

	for _, client := range stale {
		logger.Warn("Dropping slow client %s of user %s", client.ID, client.UserID)
		m.remove(client)
	}
}

func (m *Manager) join(client *Client, conversationID string) {
	m.mutex.Lock()
	client.rooms[conversationID] = true
	m.mutex.Unlock()
}

func (m *Manager) leave(client *Client, conversationID string) {
	m.mutex.Lock()
	delete(client.rooms, conversationID)
	m.mutex.Unlock()
}

// wants reports whether the client receives event. Callers hold the manager lock.
func (c *Client) wants(event Event) bool {
	if !roomScoped[event.Type] || event.ConversationID == "" {
		return true
	}
	return c.rooms[event.ConversationID]
}

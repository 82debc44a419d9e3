package hub

import (
	"encoding/json"
	"log"
	"sync"
)

// Channel names the views a client can subscribe to. A client with no
// channel receives every broadcast.
const (
	ChannelDisplay   = "display"
	ChannelDashboard = "dashboard"
	ChannelReports   = "reports"
)

type Client struct {
	ID      string
	Send    chan []byte
	Channel string
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

type SubscribeMessage struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Channel = channel
}

// Broadcast fans payload out to every client subscribed to one of the given
// channels. Clients with no subscription receive everything. Sends never
// block; a client with a full buffer drops the message.
func (h *Hub) Broadcast(payload []byte, channels ...string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.Channel != "" && !contains(channels, client.Channel) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Printf("drop message for client %s", client.ID)
		}
	}
}

func contains(values []string, value string) bool {
	for _, item := range values {
		if item == value {
			return true
		}
	}
	return false
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}

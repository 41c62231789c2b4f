// Package realtime owns the open websocket channels and fans events out to them.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Aashay2112/chat-app/pkg/model"
	"github.com/Aashay2112/chat-app/pkg/presence"
)

// ErrHubStopped is returned by calls made after Run has returned.
var ErrHubStopped = errors.New("realtime: hub stopped")

// Notifier delivers chat events to recipients. The Hub implements it for a
// single process and KafkaRelay for several.
type Notifier interface {
	NotifyMessage(ctx context.Context, msg *model.Message) error
	NotifySeen(ctx context.Context, by, peer string, count int64) error
}

type delivery struct {
	userID  string
	payload []byte
}

// Hub serialises every change to the client table and every write to a
// client's send queue through Run.
type Hub struct {
	registry *presence.Registry
	lastSeen presence.LastSeen
	log      *zap.Logger

	clients    map[string]*Client // handle -> client, owned by Run
	register   chan *Client
	unregister chan *Client
	push       chan delivery
	done       chan struct{}

	now func() time.Time
}

func NewHub(registry *presence.Registry, lastSeen presence.LastSeen, log *zap.Logger) *Hub {
	if lastSeen == nil {
		lastSeen = presence.NewMemoryLastSeen()
	}
	return &Hub{
		registry:   registry,
		lastSeen:   lastSeen,
		log:        log.Named("hub"),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		push:       make(chan delivery, 64),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Run processes hub work until ctx is cancelled, then closes every channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, c := range h.clients {
				h.drop(c)
			}
			h.log.Info("hub stopped")
			return

		case c := <-h.register:
			h.clients[c.Handle] = c
			c.setState(StateOpen)
			if h.registry.Register(c.UserID, c.Handle) {
				h.log.Info("user online", zap.String("user_id", c.UserID))
			}
			h.log.Debug("client registered", zap.String("user_id", c.UserID), zap.String("handle", c.Handle))
			h.broadcastOnline()

		case c := <-h.unregister:
			if _, ok := h.clients[c.Handle]; !ok {
				continue
			}
			h.drop(c)
			h.log.Debug("client unregistered", zap.String("user_id", c.UserID), zap.String("handle", c.Handle))
			h.broadcastOnline()

		case d := <-h.push:
			evicted := false
			for _, handle := range h.registry.Handles(d.userID) {
				c, ok := h.clients[handle]
				if !ok {
					continue
				}
				if !h.enqueue(c, d.payload) {
					evicted = true
				}
			}
			if evicted {
				h.broadcastOnline()
			}
		}
	}
}

// OnConnect registers c and broadcasts the new online snapshot to every open
// channel, c included.
func (h *Hub) OnConnect(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// OnDisconnect unregisters c. Unknown or already closed clients are ignored.
func (h *Hub) OnDisconnect(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// PushToUser delivers event to every open channel of userID. Delivery is best
// effort: a user without a channel simply misses it.
func (h *Hub) PushToUser(ctx context.Context, userID string, event model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.pushRaw(ctx, userID, payload)
}

func (h *Hub) pushRaw(ctx context.Context, userID string, payload []byte) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.push <- delivery{userID: userID, payload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

// NotifyMessage pushes msg to its recipient as a newMessage event.
func (h *Hub) NotifyMessage(ctx context.Context, msg *model.Message) error {
	return h.PushToUser(ctx, msg.RecipientID, model.Event{Type: model.EventNewMessage, Data: msg})
}

// NotifySeen tells peer that by has read count of their messages.
func (h *Hub) NotifySeen(ctx context.Context, by, peer string, count int64) error {
	return h.PushToUser(ctx, peer, model.Event{
		Type: model.EventMessagesSeen,
		Data: model.SeenData{By: by, Count: count},
	})
}

// broadcastOnline sends the full snapshot to every open channel. Evicting a
// slow client changes the snapshot, so the pass repeats until none is evicted.
func (h *Hub) broadcastOnline() {
	for {
		payload, err := json.Marshal(model.Event{Type: model.EventOnlineUsers, Data: h.registry.Snapshot()})
		if err != nil {
			h.log.Error("marshal online users", zap.Error(err))
			return
		}
		evicted := false
		for _, c := range h.clients {
			if !h.enqueue(c, payload) {
				evicted = true
			}
		}
		if !evicted {
			return
		}
	}
}

// enqueue reports false when c was evicted for a full send queue.
func (h *Hub) enqueue(c *Client, payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		h.log.Warn("evicting slow client", zap.String("user_id", c.UserID), zap.String("handle", c.Handle))
		h.drop(c)
		return false
	}
}

// drop removes c from the table and the registry and closes its send queue.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c.Handle)
	close(c.send)
	c.setState(StateClosed)
	if !h.registry.Unregister(c.UserID, c.Handle) {
		return
	}
	h.log.Info("user offline", zap.String("user_id", c.UserID))

	userID, at := c.UserID, h.now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.lastSeen.Touch(ctx, userID, at); err != nil {
			h.log.Warn("record last seen", zap.String("user_id", userID), zap.Error(err))
		}
	}()
}

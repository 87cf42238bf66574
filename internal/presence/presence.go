// Package presence tracks who is online and which notifications are
// unacknowledged, fed by the realtime connection and the REST API.
package presence

import (
	"log"
	"sync"

	"github.com/carelink/carelink/internal/api"
	"github.com/carelink/carelink/internal/session"
	"github.com/carelink/carelink/internal/socket"
)

// Update is pushed to subscribers whenever presence or notification state
// changes. Kind is "presence" or "notifications".
type Update struct {
	Kind string `json:"kind"`
}

// Holder is the presence and notification state for the signed-in user.
// The online set is defined entirely by the latest server snapshot: an id
// absent from the newest snapshot is offline, no matter what older
// snapshots said.
type Holder struct {
	api      *api.Client
	sessions *session.Store

	mu            sync.RWMutex
	online        map[string]socket.OnlineUser
	notifications []api.Notification

	listenerMu sync.RWMutex
	listeners  map[chan Update]struct{}

	cancelSub func()
	done      chan struct{}
}

// New creates a Holder and starts consuming realtime events from sock.
func New(apiClient *api.Client, sessions *session.Store, sock *socket.Manager) *Holder {
	h := &Holder{
		api:       apiClient,
		sessions:  sessions,
		online:    make(map[string]socket.OnlineUser),
		listeners: make(map[chan Update]struct{}),
		done:      make(chan struct{}),
	}
	ch, cancel := sock.Subscribe()
	h.cancelSub = cancel
	go h.consume(ch)
	return h
}

// Close stops consuming events and closes subscriber channels.
func (h *Holder) Close() {
	select {
	case <-h.done:
		return
	default:
		close(h.done)
	}
	h.cancelSub()

	h.listenerMu.Lock()
	for ch := range h.listeners {
		close(ch)
	}
	h.listeners = make(map[chan Update]struct{})
	h.listenerMu.Unlock()
}

// Subscribe returns a channel receiving an Update per state change.
func (h *Holder) Subscribe() (ch chan Update, cancel func()) {
	ch = make(chan Update, 16)
	h.listenerMu.Lock()
	h.listeners[ch] = struct{}{}
	h.listenerMu.Unlock()

	cancel = func() {
		h.listenerMu.Lock()
		if _, ok := h.listeners[ch]; ok {
			delete(h.listeners, ch)
			close(ch)
		}
		h.listenerMu.Unlock()
	}
	return ch, cancel
}

func (h *Holder) notify(kind string) {
	h.listenerMu.RLock()
	for ch := range h.listeners {
		select {
		case ch <- Update{Kind: kind}:
		default:
		}
	}
	h.listenerMu.RUnlock()
}

// IsOnline reports whether id appears in the most recent presence snapshot.
func (h *Holder) IsOnline(id string) bool {
	h.mu.RLock()
	_, ok := h.online[id]
	h.mu.RUnlock()
	return ok
}

// OnlineUsers returns the latest snapshot.
func (h *Holder) OnlineUsers() []socket.OnlineUser {
	h.mu.RLock()
	out := make([]socket.OnlineUser, 0, len(h.online))
	for _, u := range h.online {
		out = append(out, u)
	}
	h.mu.RUnlock()
	return out
}

func (h *Holder) consume(ch chan socket.Message) {
	for {
		select {
		case <-h.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handle(msg)
		}
	}
}

func (h *Holder) handle(msg socket.Message) {
	switch p := msg.Payload.(type) {
	case []socket.OnlineUser:
		// Whole-set replacement: the snapshot is the truth, nothing ages
		// out client-side.
		next := make(map[string]socket.OnlineUser, len(p))
		for _, u := range p {
			next[u.ID] = u
		}
		h.mu.Lock()
		h.online = next
		h.mu.Unlock()
		h.notify("presence")

	case *socket.NotificationEvent:
		h.appendNotification(api.Notification{
			ID:       p.ID,
			Sender:   p.Sender,
			Receiver: p.Receiver,
			Type:     p.Type,
			Message:  p.Message,
		})

	case *socket.VitalAlert:
		h.appendNotification(api.Notification{
			Sender:   p.PatientID,
			Type:     socket.EvVitalAlert,
			Message:  p.Message,
			Receiver: h.selfID(),
		})

	default:
		if msg.Event == socket.EvDisconnected {
			h.mu.Lock()
			h.online = make(map[string]socket.OnlineUser)
			h.mu.Unlock()
			h.notify("presence")
		}
	}
}

func (h *Holder) selfID() string {
	if sess, err := h.sessions.Current(); err == nil {
		return sess.UserID
	}
	return ""
}

func (h *Holder) appendNotification(n api.Notification) {
	h.mu.Lock()
	h.notifications = append(h.notifications, n)
	h.mu.Unlock()
	h.notify("notifications")
	log.Printf("PRESENCE: notification from %s (%s)", n.Sender, n.Type)
}

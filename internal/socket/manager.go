package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/session"
	"github.com/carelink/carelink/internal/util"
)

// ErrNotConnected is returned by Emit while the connection is down or no
// session is active.
var ErrNotConnected = errors.New("socket: not connected")

// Manager owns the single realtime connection for the signed-in user.
// It follows the session store: a new session tears down the old connection
// and dials with the new token; a cleared session disconnects.
//
// Reconnection is bounded: a capped exponential schedule with a fixed
// attempt budget per outage. When the budget is exhausted the manager enters
// a terminal Down state that only a fresh session leaves. Realtime failures
// are reported through Connected/Down, never as errors to event consumers.
type Manager struct {
	url    string
	dialer *websocket.Dialer

	base        time.Duration
	cap         time.Duration
	maxAttempts uint64

	mu        sync.RWMutex
	sess      *session.Session
	conn      *websocket.Conn
	connected bool
	down      bool
	cancel    context.CancelFunc

	subMu sync.RWMutex
	subs  map[chan Message]struct{}

	writeMu sync.Mutex // gorilla allows one concurrent writer
}

// New creates a manager bound to the session store. It dials as soon as a
// session appears and redials whenever the token or user id changes.
func New(cfg *config.Config, sessions *session.Store) *Manager {
	m := &Manager{
		url:         cfg.SocketURL,
		dialer:      &websocket.Dialer{HandshakeTimeout: util.DefaultConnectTimeout},
		base:        cfg.ReconnectBase,
		cap:         cfg.ReconnectCap,
		maxAttempts: cfg.ReconnectMaxAttempts,
		subs:        make(map[chan Message]struct{}),
	}
	sessions.Watch(m.SetSession)
	if sess, err := sessions.Current(); err == nil {
		m.SetSession(sess)
	}
	return m
}

// SetSession replaces the connection's identity. nil disconnects. A session
// change always tears the old connection down first so there is never more
// than one live connection per user.
func (m *Manager) SetSession(sess *session.Session) {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.connected = false
	m.down = false
	m.sess = sess

	if sess == nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	go m.run(ctx, sess)
}

// Close disconnects and closes all subscriber channels.
func (m *Manager) Close() {
	m.SetSession(nil)

	m.subMu.Lock()
	for ch := range m.subs {
		close(ch)
	}
	m.subs = make(map[chan Message]struct{})
	m.subMu.Unlock()
}

// Connected reports whether the realtime connection is currently live.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Down reports whether the reconnect budget was exhausted. A fresh session
// (SetSession) is the only way out.
func (m *Manager) Down() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.down
}

// Subscribe returns a channel receiving validated inbound events and a
// cancel function. Delivery is non-blocking: a subscriber that stops
// draining loses events rather than stalling the read loop.
func (m *Manager) Subscribe() (ch chan Message, cancel func()) {
	ch = make(chan Message, 64)

	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()

	cancel = func() {
		m.subMu.Lock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
		m.subMu.Unlock()
	}
	return ch, cancel
}

// Emit sends one event to the server on the live connection.
func (m *Manager) Emit(event string, payload any) error {
	m.mu.RLock()
	conn := m.conn
	connected := m.connected
	m.mu.RUnlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}
	return m.writeFrame(conn, event, payload)
}

func (m *Manager) writeFrame(conn *websocket.Conn, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("socket: encode %s: %w", event, err)
	}
	b, err := json.Marshal(frame{Event: event, ID: uuid.NewString(), Data: data})
	if err != nil {
		return fmt.Errorf("socket: encode frame: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(util.ShortTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("socket: write %s: %w", event, err)
	}
	return nil
}

// run is the per-session connection loop: dial with backoff, join the role
// room, serve reads until the connection drops, repeat. A successful connect
// refills the attempt budget for the next outage.
func (m *Manager) run(ctx context.Context, sess *session.Session) {
	for {
		conn, err := m.dialWithBackoff(ctx, sess)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("SOCKET: reconnect budget exhausted (%d attempts): %v", m.maxAttempts, err)
				m.mu.Lock()
				m.down = true
				m.mu.Unlock()
			}
			return
		}

		m.mu.Lock()
		if ctx.Err() != nil {
			m.mu.Unlock()
			conn.Close()
			return
		}
		m.conn = conn
		m.connected = true
		m.mu.Unlock()

		// Role room join — exactly once per (re)connect.
		if err := m.joinRoom(conn, sess); err != nil {
			log.Printf("SOCKET: room join failed: %v", err)
		} else {
			log.Printf("SOCKET: connected, joined %s room as %s", sess.Role, sess.UserID)
		}

		m.readLoop(ctx, conn)

		m.mu.Lock()
		m.connected = false
		if m.conn == conn {
			m.conn = nil
		}
		m.mu.Unlock()
		conn.Close()

		m.publishLocal(Message{Event: EvDisconnected})

		if ctx.Err() != nil {
			return
		}
		log.Printf("SOCKET: connection lost, reconnecting")
	}
}

// publishLocal fans a locally generated message out to subscribers, exactly
// like an inbound event but without touching the wire.
func (m *Manager) publishLocal(msg Message) {
	m.subMu.RLock()
	for ch := range m.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	m.subMu.RUnlock()
}

func (m *Manager) dialWithBackoff(ctx context.Context, sess *session.Session) (*websocket.Conn, error) {
	b := retry.WithCappedDuration(m.cap, retry.NewExponential(m.base))
	b = retry.WithMaxRetries(m.maxAttempts, b)

	var conn *websocket.Conn
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		header := http.Header{}
		header.Set("Authorization", "Bearer "+sess.AccessToken)
		c, _, err := m.dialer.DialContext(ctx, m.url, header)
		if err != nil {
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// joinRoom emits the role-specific room join. Admins sit in the doctor room:
// that is where monitored messages and escalations are targeted.
func (m *Manager) joinRoom(conn *websocket.Conn, sess *session.Session) error {
	ev := EvJoinDoctorRoom
	if sess.Role == session.RolePatient {
		ev = EvJoinPatientRoom
	}
	return m.writeFrame(conn, ev, JoinRoom{UserID: sess.UserID, Name: sess.Name})
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Printf("SOCKET: dropping malformed frame: %v", err)
			continue
		}
		payload, err := decodePayload(&f)
		if err != nil {
			log.Printf("SOCKET: dropping frame: %v", err)
			continue
		}

		msg := Message{Event: f.Event, Payload: payload}
		m.subMu.RLock()
		for ch := range m.subs {
			select {
			case ch <- msg:
			default:
				log.Printf("SOCKET: subscriber full, dropping %s", f.Event)
			}
		}
		m.subMu.RUnlock()

		if ctx.Err() != nil {
			return
		}
	}
}

package call

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/carelink/carelink/internal/session"
	"github.com/carelink/carelink/internal/socket"
	"github.com/carelink/carelink/internal/util"
)

const debugRingSize = 128

var (
	ErrBusy     = errors.New("call: another call is in progress")
	ErrNoInvite = errors.New("call: no pending invite")
)

// Manager is the single owner of call state for the signed-in user: the
// signaling state machine, the one active peer session, and the structured
// error channel. It starts routing signaling messages immediately on New.
type Manager struct {
	sig      Signaler
	sessions *session.Store
	stunURL  string

	state *stateHolder
	debug *util.RingBuffer[DebugEntry]

	mu     sync.Mutex
	active *Session

	errCh chan Error
	done  chan struct{}
}

// New creates a call Manager attached to sig and starts its dispatch loop.
func New(sig Signaler, sessions *session.Store, stunURL string) *Manager {
	m := &Manager{
		sig:      sig,
		sessions: sessions,
		stunURL:  stunURL,
		state:    newStateHolder(),
		debug:    util.NewRingBuffer[DebugEntry](debugRingSize),
		errCh:    make(chan Error, 16),
		done:     make(chan struct{}),
	}
	go m.dispatchLoop()
	return m
}

// State returns the current signaling snapshot.
func (m *Manager) State() Snapshot { return m.state.Snapshot() }

// SubscribeState returns a channel receiving a snapshot per transition.
func (m *Manager) SubscribeState() (chan Snapshot, func()) { return m.state.Subscribe() }

// Errors delivers structured call failures. By the time an Error is read the
// call state is idle and local media released.
func (m *Manager) Errors() <-chan Error { return m.errCh }

// DebugLog returns the recent signaling history, oldest first.
func (m *Manager) DebugLog() []DebugEntry { return m.debug.Snapshot() }

// ActiveSession returns the live peer session, if any.
func (m *Manager) ActiveSession() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// StartCall places an outbound call for an appointment: enters ringing,
// announces the call to the far side, and opens the caller-side peer session
// (the offer goes out as soon as media is up).
func (m *Manager) StartCall(ctx context.Context, appointmentID, recipientID string) (*Session, error) {
	self, err := m.sessions.Current()
	if err != nil {
		return nil, err
	}
	inv := &socket.CallInvite{
		AppointmentID: appointmentID,
		CallerID:      self.UserID,
		CallerName:    self.Name,
		RecipientID:   recipientID,
	}
	if !m.state.startRinging(inv) {
		return nil, ErrBusy
	}
	if err := m.sig.Emit(socket.EvStartVideoCall, inv); err != nil {
		m.state.clear()
		return nil, fmt.Errorf("announce call: %w", err)
	}

	sess, err := m.openSession(appointmentID, self.UserID, recipientID, true)
	if err != nil {
		m.state.clear()
		m.emitDecline(appointmentID, self.UserID, recipientID)
		return nil, err
	}
	log.Printf("CALL: ringing %s for appointment %s", recipientID, appointmentID)
	return sess, nil
}

// Accept answers the pending invite. Exactly-once: a second Accept while the
// call is live returns the existing session and does nothing else.
func (m *Manager) Accept(ctx context.Context) (*Session, error) {
	inv, ok := m.state.accept()
	if !ok {
		// Already accepted → no-op, hand back the live session.
		if m.state.Snapshot().State == StateAccepted {
			if sess, live := m.ActiveSession(); live {
				return sess, nil
			}
		}
		return nil, ErrNoInvite
	}

	self, err := m.sessions.Current()
	if err != nil {
		m.state.clear()
		return nil, err
	}

	sess, err := m.openSession(inv.AppointmentID, self.UserID, inv.CallerID, false)
	if err != nil {
		// Media failure force-clears the call and tells the caller,
		// otherwise their phone rings forever.
		m.state.clear()
		m.emitDecline(inv.AppointmentID, inv.CallerID, inv.RecipientID)
		m.pushError(inv.AppointmentID, err)
		return nil, err
	}
	log.Printf("CALL: accepted %s from %s", inv.AppointmentID, inv.CallerName)
	return sess, nil
}

// Decline refuses the pending invite and notifies the far side. A decline
// with nothing pending is a no-op.
func (m *Manager) Decline(ctx context.Context) error {
	inv, ok := m.state.decline()
	if !ok {
		return nil
	}
	m.emitDecline(inv.AppointmentID, inv.CallerID, inv.RecipientID)
	log.Printf("CALL: declined %s", inv.AppointmentID)
	return nil
}

// Hangup ends the active call (or cancels ringing), notifying the far side
// and releasing local media. Idempotent.
func (m *Manager) Hangup() {
	snap := m.state.Snapshot()

	m.mu.Lock()
	active := m.active
	m.active = nil
	m.mu.Unlock()

	if active != nil {
		active.Hangup()
	}
	if snap.Ringing != nil {
		m.emitDecline(snap.Ringing.AppointmentID, snap.Ringing.CallerID, snap.Ringing.RecipientID)
	} else if snap.Invite != nil {
		// Hanging up on a pending invite is a decline: without the notice
		// the caller keeps ringing until their timeout.
		m.emitDecline(snap.Invite.AppointmentID, snap.Invite.CallerID, snap.Invite.RecipientID)
	} else if active != nil {
		if self, err := m.sessions.Current(); err == nil {
			m.emitDecline(active.AppointmentID(), self.UserID, active.remoteID)
		}
	}
	if snap.State != StateIdle {
		m.state.clear()
	}
}

// ToggleAudio flips the local audio mute on the active call.
func (m *Manager) ToggleAudio() (bool, error) {
	sess, ok := m.ActiveSession()
	if !ok {
		return false, ErrNoInvite
	}
	return sess.ToggleAudio(), nil
}

// ToggleVideo flips the local video mute on the active call.
func (m *Manager) ToggleVideo() (bool, error) {
	sess, ok := m.ActiveSession()
	if !ok {
		return false, ErrNoInvite
	}
	return sess.ToggleVideo(), nil
}

// Close shuts down the manager and the active session.
func (m *Manager) Close() {
	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}
	m.Hangup()
	m.state.close()
}

func (m *Manager) openSession(appointmentID, selfID, remoteID string, caller bool) (*Session, error) {
	sess, err := newSession(appointmentID, selfID, remoteID, caller, m.sig, m.stunURL, m.debug,
		func(err error) { m.sessionFailed(appointmentID, err) },
		func() { m.sessionClosed(appointmentID) },
	)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.active = sess
	m.mu.Unlock()
	return sess, nil
}

func (m *Manager) sessionFailed(appointmentID string, err error) {
	m.pushError(appointmentID, err)
}

// sessionClosed drops the bookkeeping for a finished session. The session
// itself already released its media.
func (m *Manager) sessionClosed(appointmentID string) {
	m.mu.Lock()
	if m.active != nil && m.active.AppointmentID() == appointmentID {
		m.active = nil
	}
	m.mu.Unlock()
	m.state.remoteEnded(appointmentID)
}

func (m *Manager) emitDecline(appointmentID, callerID, recipientID string) {
	err := m.sig.Emit(socket.EvDeclineVideoCall, socket.CallDecline{
		AppointmentID: appointmentID,
		CallerID:      callerID,
		RecipientID:   recipientID,
	})
	if err != nil {
		log.Printf("CALL: decline notice for %s: %v", appointmentID, err)
	}
}

func (m *Manager) pushError(appointmentID string, err error) {
	select {
	case m.errCh <- Error{AppointmentID: appointmentID, Err: err}:
	default:
		log.Printf("CALL: error channel full, dropping: %v", err)
	}
}

// dispatchLoop routes realtime events into the state machine and the active
// session. Handlers tolerate out-of-order delivery: stale declines and
// signals for finished calls are no-ops.
func (m *Manager) dispatchLoop() {
	ch, cancel := m.sig.Subscribe()
	defer cancel()

	for {
		select {
		case <-m.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			m.dispatch(msg)
		}
	}
}

func (m *Manager) dispatch(msg socket.Message) {
	switch p := msg.Payload.(type) {
	case *socket.CallInvite:
		switch msg.Event {
		case socket.EvReceiveVideoCall:
			self, err := m.sessions.Current()
			if err != nil || p.RecipientID != self.UserID {
				return // not addressed to us
			}
			displaced, ok := m.state.handleInvite(p)
			if !ok {
				return
			}
			if displaced != nil {
				// The incoming call cancels our outbound one: release its
				// session and stop the original recipient's ringing.
				m.teardownIfActive(displaced.AppointmentID)
				m.emitDecline(displaced.AppointmentID, displaced.CallerID, displaced.RecipientID)
				log.Printf("CALL: outbound %s cancelled by incoming call", displaced.AppointmentID)
			}
			log.Printf("CALL: incoming call %s from %s", p.AppointmentID, p.CallerName)
		case socket.EvCallRinging:
			// Caller-side confirmation; state is already ringing.
			m.debugNote(p.AppointmentID, "ringing")
		}

	case *socket.CallDecline:
		if m.state.remoteEnded(p.AppointmentID) {
			m.teardownIfActive(p.AppointmentID)
			log.Printf("CALL: %s declined by remote", p.AppointmentID)
		}

	case *socket.CallErrorEvent:
		if m.state.remoteEnded(p.AppointmentID) {
			m.teardownIfActive(p.AppointmentID)
		}
		m.pushError(p.AppointmentID, fmt.Errorf("server call error: %s", p.Message))

	case *socket.CallSignal:
		self, err := m.sessions.Current()
		if err != nil || p.From == self.UserID {
			return
		}
		sess, ok := m.ActiveSession()
		if !ok || sess.AppointmentID() != p.AppointmentID {
			m.debugNote(p.AppointmentID, "signal for inactive call: "+p.Kind)
			return
		}
		sess.handleSignal(p)
		if p.Kind == "answer" {
			m.state.connected(p.AppointmentID)
		}

	default:
		if msg.Event == socket.EvDisconnected {
			// Connection gone: ringing and invites are void, the active
			// session cannot signal anymore.
			m.teardownAll()
		}
	}
}

func (m *Manager) teardownIfActive(appointmentID string) {
	m.mu.Lock()
	active := m.active
	if active != nil && active.AppointmentID() == appointmentID {
		m.active = nil
	} else {
		active = nil
	}
	m.mu.Unlock()
	if active != nil {
		active.Hangup()
	}
}

func (m *Manager) teardownAll() {
	m.mu.Lock()
	active := m.active
	m.active = nil
	m.mu.Unlock()
	if active != nil {
		active.Hangup()
	}
	if m.state.Snapshot().State != StateIdle {
		m.state.clear()
	}
}

func (m *Manager) debugNote(appointmentID, detail string) {
	m.debug.Push(DebugEntry{
		At:            time.Now(),
		AppointmentID: appointmentID,
		Dir:           "in",
		Kind:          "note",
		Detail:        detail,
	})
}

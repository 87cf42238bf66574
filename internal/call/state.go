package call

import (
	"log"
	"sync"

	"github.com/carelink/carelink/internal/socket"
)

// Snapshot is the externally visible call state: at most one pending invite
// and at most one outbound ringing record, never both.
type Snapshot struct {
	State   State              `json:"state"`
	Invite  *socket.CallInvite `json:"invite,omitempty"`
	Ringing *socket.CallInvite `json:"ringing,omitempty"`
}

// stateHolder is the single source of truth for signaling state. All
// transitions go through it; the manager never mutates state directly.
//
// Policy: only one invite is tracked. A second inbound invite while one is
// pending overwrites the first — last write wins, no queueing. Invite and
// ringing are mutually exclusive: entering either clears the other.
type stateHolder struct {
	mu      sync.Mutex
	state   State
	invite  *socket.CallInvite
	ringing *socket.CallInvite

	listenerMu sync.RWMutex
	listeners  map[chan Snapshot]struct{}
}

func newStateHolder() *stateHolder {
	return &stateHolder{
		state:     StateIdle,
		listeners: make(map[chan Snapshot]struct{}),
	}
}

func (h *stateHolder) snapshotLocked() Snapshot {
	return Snapshot{State: h.state, Invite: h.invite, Ringing: h.ringing}
}

// Snapshot returns the current state.
func (h *stateHolder) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

// Subscribe returns a channel receiving a Snapshot after every transition.
func (h *stateHolder) Subscribe() (ch chan Snapshot, cancel func()) {
	ch = make(chan Snapshot, 16)
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

func (h *stateHolder) notify(snap Snapshot) {
	h.listenerMu.RLock()
	for ch := range h.listeners {
		select {
		case ch <- snap:
		default:
		}
	}
	h.listenerMu.RUnlock()
}

// handleInvite records an inbound invite. Overwrites a pending invite
// (last write wins) and cancels any outbound ringing state; the displaced
// ringing record is returned so the caller can tear down the session it
// opened for it. During an accepted call the invite is dropped: the active
// session wins.
func (h *stateHolder) handleInvite(inv *socket.CallInvite) (displaced *socket.CallInvite, ok bool) {
	h.mu.Lock()
	if h.state == StateAccepted {
		h.mu.Unlock()
		log.Printf("CALL: invite %s dropped, call in progress", inv.AppointmentID)
		return nil, false
	}
	if h.invite != nil {
		log.Printf("CALL: invite %s overwrites pending %s", inv.AppointmentID, h.invite.AppointmentID)
	}
	displaced = h.ringing
	h.state = StateInvited
	h.invite = inv
	h.ringing = nil
	snap := h.snapshotLocked()
	h.mu.Unlock()

	h.notify(snap)
	return displaced, true
}

// startRinging enters the caller-side mirror state. Only valid from idle;
// a pending invite blocks outbound calls (calling and being called are
// mutually exclusive).
func (h *stateHolder) startRinging(inv *socket.CallInvite) bool {
	h.mu.Lock()
	if h.state != StateIdle {
		h.mu.Unlock()
		return false
	}
	h.state = StateRinging
	h.ringing = inv
	h.invite = nil
	snap := h.snapshotLocked()
	h.mu.Unlock()

	h.notify(snap)
	return true
}

// accept transitions invited → accepted exactly once and returns the invite.
// Any other state returns (nil, false); a second accept is a no-op for the
// manager because the state is already accepted.
func (h *stateHolder) accept() (*socket.CallInvite, bool) {
	h.mu.Lock()
	if h.state != StateInvited || h.invite == nil {
		h.mu.Unlock()
		return nil, false
	}
	inv := h.invite
	h.state = StateAccepted
	h.invite = nil
	snap := h.snapshotLocked()
	h.mu.Unlock()

	h.notify(snap)
	return inv, true
}

// connected marks an outbound call answered: ringing → accepted.
func (h *stateHolder) connected(appointmentID string) bool {
	h.mu.Lock()
	if h.state != StateRinging || h.ringing == nil || h.ringing.AppointmentID != appointmentID {
		h.mu.Unlock()
		return false
	}
	h.state = StateAccepted
	h.ringing = nil
	snap := h.snapshotLocked()
	h.mu.Unlock()

	h.notify(snap)
	return true
}

// decline clears a pending invite and returns it so the caller can emit the
// decline notice. Idempotent: returns (nil, false) when nothing is pending.
func (h *stateHolder) decline() (*socket.CallInvite, bool) {
	h.mu.Lock()
	if h.state != StateInvited || h.invite == nil {
		h.mu.Unlock()
		return nil, false
	}
	inv := h.invite
	h.reset()
	snap := h.snapshotLocked()
	h.mu.Unlock()

	h.notify(snap)
	return inv, true
}

// remoteEnded handles a far-side decline/cancel/error for appointmentID.
// Matches pending invite, ringing, or the accepted call; anything else is a
// stale event and a no-op (out-of-order delivery tolerance).
func (h *stateHolder) remoteEnded(appointmentID string) bool {
	h.mu.Lock()
	matched := false
	switch {
	case h.invite != nil && h.invite.AppointmentID == appointmentID:
		matched = true
	case h.ringing != nil && h.ringing.AppointmentID == appointmentID:
		matched = true
	case h.state == StateAccepted:
		matched = true
	}
	if !matched {
		h.mu.Unlock()
		return false
	}
	h.reset()
	snap := h.snapshotLocked()
	h.mu.Unlock()

	h.notify(snap)
	return true
}

// clear unconditionally returns to idle (disconnect, hangup, error).
func (h *stateHolder) clear() {
	h.mu.Lock()
	h.reset()
	snap := h.snapshotLocked()
	h.mu.Unlock()
	h.notify(snap)
}

func (h *stateHolder) reset() {
	h.state = StateIdle
	h.invite = nil
	h.ringing = nil
}

func (h *stateHolder) close() {
	h.listenerMu.Lock()
	for ch := range h.listeners {
		close(ch)
	}
	h.listeners = make(map[chan Snapshot]struct{})
	h.listenerMu.Unlock()
}

// Package call owns the call-signaling state machine and the WebRTC peer
// session for the active call. It talks to the realtime layer only through
// the Signaler interface, so tests drive it with a fake.
package call

import (
	"time"

	"github.com/carelink/carelink/internal/socket"
)

// Signaler is the only surface the call package needs from the realtime
// layer. The socket.Manager satisfies it directly.
type Signaler interface {
	Emit(event string, payload any) error
	Subscribe() (ch chan socket.Message, cancel func())
}

// State is the signaling state of the consolidated call holder.
type State string

const (
	StateIdle     State = "idle"
	StateInvited  State = "invited"  // inbound invite pending accept/decline
	StateRinging  State = "ringing"  // outbound call awaiting the far side
	StateAccepted State = "accepted" // peer session active
)

// Error is a structured call failure delivered on the manager's error
// channel. Every Error has already force-cleared the call state and released
// local media by the time it is observed.
type Error struct {
	AppointmentID string
	Err           error
}

func (e Error) Error() string {
	return "call " + e.AppointmentID + ": " + e.Err.Error()
}

// DebugEntry is one recorded signaling step, kept in a bounded ring for the
// gateway's debug endpoint.
type DebugEntry struct {
	At            time.Time `json:"at"`
	AppointmentID string    `json:"appointment_id"`
	Dir           string    `json:"dir"` // "in" | "out"
	Kind          string    `json:"kind"`
	Detail        string    `json:"detail,omitempty"`
}

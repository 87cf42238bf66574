// Package socket owns the single realtime connection to the signaling
// service: one authenticated websocket per signed-in user, a role room join
// on every (re)connect, and typed fan-out of server events.
package socket

import (
	"encoding/json"
	"fmt"
)

// Realtime event names. The wire frame is {"event": <name>, "data": <payload>}
// in both directions.
const (
	// client → server
	EvJoinPatientRoom  = "joinPatientRoom"
	EvJoinDoctorRoom   = "joinDoctorRoom"
	EvStartVideoCall   = "startVideoCall"
	EvDeclineVideoCall = "declineVideoCall"
	EvChatJoin         = "chat:join"
	EvChatTyping       = "chat:typing"

	// server → client
	EvReceiveVideoCall = "receiveVideoCall"
	EvCallRinging      = "callRinging"
	EvCallDeclined     = "callDeclined"
	EvCallError        = "callError"
	EvNotification     = "notification"
	EvVitalAlert       = "vital:alert"
	EvChatMessage      = "chat:message"
	EvMonitoredMessage = "monitoredMessage"
	EvOnlineUsers      = "onlineUsers"

	// both directions: SDP offers/answers and ICE candidates relayed
	// between the two call parties.
	EvCallSignal = "callSignal"

	// EvDisconnected is published locally by the Manager (never decoded
	// from the wire) when the connection drops, so state holders can void
	// invites and presence that depended on it.
	EvDisconnected = "_disconnected"
)

// frame is the raw wire shape of one realtime message.
type frame struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is one validated inbound event. Payload is the typed struct for
// the event (see decodePayload); consumers type-switch on it.
type Message struct {
	Event   string
	Payload any
}

// CallInvite announces an inbound call, or carries the caller-side mirror in
// a callRinging event.
type CallInvite struct {
	AppointmentID string `json:"appointmentId"`
	CallerID      string `json:"callerId"`
	CallerName    string `json:"callerName"`
	RecipientID   string `json:"recipientId"`
}

// CallDecline carries the ids of a declined or cancelled call.
type CallDecline struct {
	AppointmentID string `json:"appointmentId"`
	CallerID      string `json:"callerId"`
	RecipientID   string `json:"recipientId"`
}

// CallErrorEvent is a server-pushed failure for an in-progress call.
type CallErrorEvent struct {
	AppointmentID string `json:"appointmentId"`
	Message       string `json:"message"`
}

// CallSignal relays one SDP or ICE blob between the call parties. Kind is
// "offer", "answer" or "ice"; Data is the library-specific payload, opaque
// to the socket layer.
type CallSignal struct {
	AppointmentID string          `json:"appointmentId"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Kind          string          `json:"kind"`
	Data          json.RawMessage `json:"data"`
}

// NotificationEvent is a server-pushed notification. Mirrors the REST shape
// so the presence holder can merge pushed and fetched notifications.
type NotificationEvent struct {
	ID       string `json:"_id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Type     string `json:"type"`
	Message  string `json:"message"`
}

// VitalAlert is pushed when a monitored reading crosses a threshold.
type VitalAlert struct {
	PatientID string  `json:"patientId"`
	VitalID   string  `json:"vitalId"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Message   string  `json:"message"`
}

// ChatEvent is a realtime chat message, typing indicator or room join. For
// typing and join events Message is empty.
type ChatEvent struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message,omitempty"`
	Typing     bool   `json:"typing,omitempty"`
}

// OnlineUser is one entry of a presence snapshot. Membership in the latest
// snapshot is the whole definition of "online".
type OnlineUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// JoinRoom is the payload for the role room join events.
type JoinRoom struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}

// decodePayload validates one inbound frame against the event registry and
// returns the typed payload. Unknown events and malformed payloads are
// errors; they never enter application state.
func decodePayload(f *frame) (any, error) {
	unmarshal := func(v any) (any, error) {
		if len(f.Data) == 0 {
			return nil, fmt.Errorf("event %q: empty payload", f.Event)
		}
		if err := json.Unmarshal(f.Data, v); err != nil {
			return nil, fmt.Errorf("event %q: %w", f.Event, err)
		}
		return v, nil
	}

	switch f.Event {
	case EvReceiveVideoCall, EvCallRinging:
		v := &CallInvite{}
		if _, err := unmarshal(v); err != nil {
			return nil, err
		}
		if v.AppointmentID == "" || v.CallerID == "" {
			return nil, fmt.Errorf("event %q: missing appointment or caller id", f.Event)
		}
		return v, nil
	case EvCallDeclined, EvDeclineVideoCall:
		v := &CallDecline{}
		if _, err := unmarshal(v); err != nil {
			return nil, err
		}
		if v.AppointmentID == "" {
			return nil, fmt.Errorf("event %q: missing appointment id", f.Event)
		}
		return v, nil
	case EvCallError:
		return unmarshal(&CallErrorEvent{})
	case EvCallSignal:
		v := &CallSignal{}
		if _, err := unmarshal(v); err != nil {
			return nil, err
		}
		if v.AppointmentID == "" || v.Kind == "" {
			return nil, fmt.Errorf("event %q: missing appointment id or kind", f.Event)
		}
		return v, nil
	case EvNotification:
		return unmarshal(&NotificationEvent{})
	case EvVitalAlert:
		return unmarshal(&VitalAlert{})
	case EvChatMessage, EvChatJoin, EvChatTyping, EvMonitoredMessage:
		return unmarshal(&ChatEvent{})
	case EvOnlineUsers:
		v := &[]OnlineUser{}
		if _, err := unmarshal(v); err != nil {
			return nil, err
		}
		return *v, nil
	default:
		return nil, fmt.Errorf("unknown event %q", f.Event)
	}
}

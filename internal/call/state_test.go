package call

import (
	"testing"

	"github.com/carelink/carelink/internal/socket"
)

func invite(appointmentID, caller, recipient string) *socket.CallInvite {
	return &socket.CallInvite{
		AppointmentID: appointmentID,
		CallerID:      caller,
		CallerName:    "Dr. " + caller,
		RecipientID:   recipient,
	}
}

func TestInviteThenDeclineEndsIdle(t *testing.T) {
	h := newStateHolder()

	if _, ok := h.handleInvite(invite("appt-1", "doc-1", "pat-1")); !ok {
		t.Fatal("invite rejected")
	}
	if got := h.Snapshot().State; got != StateInvited {
		t.Fatalf("state = %s, want invited", got)
	}

	inv, ok := h.decline()
	if !ok {
		t.Fatal("decline with pending invite returned false")
	}
	if inv.AppointmentID != "appt-1" {
		t.Fatalf("declined %s, want appt-1", inv.AppointmentID)
	}

	snap := h.Snapshot()
	if snap.State != StateIdle || snap.Invite != nil || snap.Ringing != nil {
		t.Fatalf("after decline: %+v, want idle with no invite", snap)
	}
}

func TestRemoteDeclineForPendingInviteEndsIdle(t *testing.T) {
	h := newStateHolder()
	h.handleInvite(invite("appt-1", "doc-1", "pat-1"))

	if !h.remoteEnded("appt-1") {
		t.Fatal("remoteEnded did not match pending invite")
	}
	if got := h.Snapshot().State; got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
}

func TestAcceptExactlyOnce(t *testing.T) {
	h := newStateHolder()
	h.handleInvite(invite("appt-1", "doc-1", "pat-1"))

	inv, ok := h.accept()
	if !ok || inv == nil {
		t.Fatal("first accept failed")
	}
	if got := h.Snapshot().State; got != StateAccepted {
		t.Fatalf("state = %s, want accepted", got)
	}

	if _, ok := h.accept(); ok {
		t.Fatal("second accept succeeded, want no-op")
	}
	if got := h.Snapshot().State; got != StateAccepted {
		t.Fatalf("state after double accept = %s, want accepted", got)
	}
}

func TestSecondInviteOverwritesFirst(t *testing.T) {
	h := newStateHolder()
	h.handleInvite(invite("appt-1", "doc-1", "pat-1"))
	h.handleInvite(invite("appt-2", "doc-2", "pat-1"))

	snap := h.Snapshot()
	if snap.Invite == nil || snap.Invite.AppointmentID != "appt-2" {
		t.Fatalf("pending invite = %+v, want appt-2", snap.Invite)
	}

	// The overwritten invite is gone: closing out appt-1 matches nothing.
	if h.remoteEnded("appt-1") {
		t.Fatal("remoteEnded matched the overwritten invite")
	}
}

func TestInviteDroppedWhileAccepted(t *testing.T) {
	h := newStateHolder()
	h.handleInvite(invite("appt-1", "doc-1", "pat-1"))
	h.accept()

	if _, ok := h.handleInvite(invite("appt-2", "doc-2", "pat-1")); ok {
		t.Fatal("invite accepted during live call")
	}
	snap := h.Snapshot()
	if snap.State != StateAccepted || snap.Invite != nil {
		t.Fatalf("snapshot = %+v, want accepted with no invite", snap)
	}
}

func TestInviteDisplacesRinging(t *testing.T) {
	h := newStateHolder()
	h.startRinging(invite("appt-out", "pat-1", "doc-1"))

	displaced, ok := h.handleInvite(invite("appt-in", "doc-2", "pat-1"))
	if !ok {
		t.Fatal("invite rejected while ringing")
	}
	if displaced == nil || displaced.AppointmentID != "appt-out" {
		t.Fatalf("displaced = %+v, want the cancelled outbound record", displaced)
	}

	snap := h.Snapshot()
	if snap.State != StateInvited || snap.Ringing != nil {
		t.Fatalf("snapshot = %+v, want invited with no ringing", snap)
	}
}

func TestRingingBlockedByPendingInvite(t *testing.T) {
	h := newStateHolder()
	h.handleInvite(invite("appt-1", "doc-1", "pat-1"))

	if h.startRinging(invite("appt-2", "pat-1", "doc-2")) {
		t.Fatal("outbound call allowed while an invite is pending")
	}
}

func TestConnectedMatchesOnlyRingingAppointment(t *testing.T) {
	h := newStateHolder()
	h.startRinging(invite("appt-1", "pat-1", "doc-1"))

	if h.connected("appt-other") {
		t.Fatal("connected matched the wrong appointment")
	}
	if !h.connected("appt-1") {
		t.Fatal("connected did not match the ringing appointment")
	}
	if got := h.Snapshot().State; got != StateAccepted {
		t.Fatalf("state = %s, want accepted", got)
	}
}

func TestStaleDeclineIsNoOp(t *testing.T) {
	h := newStateHolder()
	h.handleInvite(invite("appt-1", "doc-1", "pat-1"))
	h.clear() // local hangup already happened

	if h.remoteEnded("appt-1") {
		t.Fatal("decline after hangup changed state")
	}
	if got := h.Snapshot().State; got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
}

func TestSubscribeSeesTransitions(t *testing.T) {
	h := newStateHolder()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.handleInvite(invite("appt-1", "doc-1", "pat-1"))
	h.decline()

	first := <-ch
	if first.State != StateInvited {
		t.Fatalf("first notification = %s, want invited", first.State)
	}
	second := <-ch
	if second.State != StateIdle {
		t.Fatalf("second notification = %s, want idle", second.State)
	}
}

package socket

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, event, data string) (any, error) {
	t.Helper()
	f := &frame{Event: event}
	if data != "" {
		f.Data = json.RawMessage(data)
	}
	return decodePayload(f)
}

func TestDecodeInvite(t *testing.T) {
	payload, err := decode(t, EvReceiveVideoCall,
		`{"appointmentId":"appt-1","callerId":"doc-1","callerName":"Dr. Adler","recipientId":"pat-1"}`)
	if err != nil {
		t.Fatal(err)
	}
	inv, ok := payload.(*CallInvite)
	if !ok {
		t.Fatalf("payload is %T, want *CallInvite", payload)
	}
	if inv.CallerName != "Dr. Adler" || inv.AppointmentID != "appt-1" {
		t.Fatalf("decoded %+v", inv)
	}
}

func TestDecodeInviteMissingIDs(t *testing.T) {
	if _, err := decode(t, EvReceiveVideoCall, `{"callerName":"Dr. Adler"}`); err == nil {
		t.Fatal("invite without ids accepted")
	}
}

func TestDecodeUnknownEvent(t *testing.T) {
	if _, err := decode(t, "totallyNewEvent", `{"x":1}`); err == nil {
		t.Fatal("unknown event accepted")
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	if _, err := decode(t, EvCallDeclined, ""); err == nil {
		t.Fatal("empty payload accepted")
	}
}

func TestDecodeSignalRequiresKind(t *testing.T) {
	if _, err := decode(t, EvCallSignal, `{"appointmentId":"appt-1","from":"a","to":"b"}`); err == nil {
		t.Fatal("signal without kind accepted")
	}
	payload, err := decode(t, EvCallSignal,
		`{"appointmentId":"appt-1","from":"a","to":"b","kind":"ice","data":{"candidate":"..."}}`)
	if err != nil {
		t.Fatal(err)
	}
	sig := payload.(*CallSignal)
	if sig.Kind != "ice" || len(sig.Data) == 0 {
		t.Fatalf("decoded %+v", sig)
	}
}

func TestDecodeOnlineUsers(t *testing.T) {
	payload, err := decode(t, EvOnlineUsers,
		`[{"id":"u1","name":"A","role":"patient"},{"id":"u2","name":"B","role":"doctor"}]`)
	if err != nil {
		t.Fatal(err)
	}
	users, ok := payload.([]OnlineUser)
	if !ok {
		t.Fatalf("payload is %T, want []OnlineUser", payload)
	}
	if len(users) != 2 || users[1].ID != "u2" {
		t.Fatalf("decoded %+v", users)
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	if _, err := decode(t, EvNotification, `{"oops`); err == nil {
		t.Fatal("malformed payload accepted")
	}
}

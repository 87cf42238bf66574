package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/carelink/internal/api"
	"github.com/carelink/carelink/internal/call"
	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/presence"
	"github.com/carelink/carelink/internal/session"
	"github.com/carelink/carelink/internal/socket"
)

// newTestGateway wires a gateway around an httptest backend and a realtime
// manager pointed at a dead endpoint. Realtime-dependent assertions only
// check the disconnected paths.
func newTestGateway(t *testing.T, backend http.Handler) (*httptest.Server, *session.Store) {
	t.Helper()

	store := session.NewStore()
	var client *api.Client
	if backend != nil {
		apiSrv := httptest.NewServer(backend)
		t.Cleanup(apiSrv.Close)
		client = api.NewClient(apiSrv.URL, store)
	} else {
		client = api.NewClient("http://127.0.0.1:1", store)
	}

	cfg := &config.Config{
		SocketURL:            "ws://127.0.0.1:1",
		ReconnectBase:        5 * time.Millisecond,
		ReconnectCap:         10 * time.Millisecond,
		ReconnectMaxAttempts: 1,
	}
	sock := socket.New(cfg, store)
	t.Cleanup(sock.Close)
	calls := call.New(sock, store, "stun:stun.example.org:3478")
	t.Cleanup(calls.Close)
	pres := presence.New(client, store, sock)
	t.Cleanup(pres.Close)

	g := &Gateway{API: client, Sessions: store, Socket: sock, Calls: calls, Presence: pres}
	srv := httptest.NewServer(g.Router())
	t.Cleanup(srv.Close)
	return srv, store
}

func patientTestToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.AccessClaims{
		UserID: "pat-1",
		Name:   "Pat",
		Role:   session.RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

// noRedirect returns a client that surfaces 3xx responses instead of
// following them.
func noRedirect() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func signIn(store *session.Store, role session.Role) {
	store.Set(&session.Session{UserID: "u-1", Name: "U One", Role: role, AccessToken: "t"})
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestGateway(t, nil)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionEndpointWithoutSession(t *testing.T) {
	srv, _ := newTestGateway(t, nil)
	resp, err := http.Get(srv.URL + "/api/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionEndpointSignedIn(t *testing.T) {
	srv, store := newTestGateway(t, nil)
	signIn(store, session.RolePatient)

	resp, err := http.Get(srv.URL + "/api/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sess session.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	assert.Equal(t, "u-1", sess.UserID)
	assert.Equal(t, session.RolePatient, sess.Role)
}

func TestDashboardRedirectsWithoutSession(t *testing.T) {
	srv, _ := newTestGateway(t, nil)
	resp, err := noRedirect().Get(srv.URL + "/patient/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/sign-in", resp.Header.Get("Location"))
}

func TestDashboardRoleMismatchRedirectsHome(t *testing.T) {
	srv, store := newTestGateway(t, nil)
	signIn(store, session.RoleDoctor)

	resp, err := noRedirect().Get(srv.URL + "/patient/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/doctor/dashboard", resp.Header.Get("Location"))
}

func TestDashboardMatchingRole(t *testing.T) {
	srv, store := newTestGateway(t, nil)
	signIn(store, session.RolePatient)

	resp, err := http.Get(srv.URL + "/patient/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body, "user")
	assert.Contains(t, body, "call")
}

func TestUnknownRoleSegmentIs404(t *testing.T) {
	srv, store := newTestGateway(t, nil)
	signIn(store, session.RolePatient)

	resp, err := http.Get(srv.URL + "/nurse/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallStateIdle(t *testing.T) {
	srv, _ := newTestGateway(t, nil)
	resp, err := http.Get(srv.URL + "/api/call/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var snap call.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, call.StateIdle, snap.State)
}

func TestCallAcceptWithoutInvite(t *testing.T) {
	srv, store := newTestGateway(t, nil)
	signIn(store, session.RolePatient)

	resp := postJSON(t, srv.URL+"/api/call/accept", map[string]string{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallDeclineWithoutInviteIsOK(t *testing.T) {
	srv, store := newTestGateway(t, nil)
	signIn(store, session.RolePatient)

	resp := postJSON(t, srv.URL+"/api/call/decline", map[string]string{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCallStartValidation(t *testing.T) {
	srv, store := newTestGateway(t, nil)
	signIn(store, session.RolePatient)

	resp := postJSON(t, srv.URL+"/api/call/start", map[string]string{"appointment_id": "appt-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/call/start", map[string]string{
		"appointment_id": "appt-1",
		"recipient_id":   "doc/../admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallStartWhileDisconnected(t *testing.T) {
	srv, store := newTestGateway(t, nil)
	signIn(store, session.RolePatient)

	resp := postJSON(t, srv.URL+"/api/call/start", map[string]string{
		"appointment_id": "appt-1",
		"recipient_id":   "doc-1",
	})
	// Dead socket: the announce fails before any media is touched.
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestToggleAudioWithoutCall(t *testing.T) {
	srv, _ := newTestGateway(t, nil)
	resp := postJSON(t, srv.URL+"/api/call/toggle-audio", map[string]string{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRealtimeStatus(t *testing.T) {
	srv, _ := newTestGateway(t, nil)
	resp, err := http.Get(srv.URL + "/api/realtime")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body["connected"])
}

func TestNotificationsEmpty(t *testing.T) {
	srv, _ := newTestGateway(t, nil)
	resp, err := http.Get(srv.URL + "/api/notifications")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Unacknowledged int `json:"unacknowledged"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Zero(t, body.Unacknowledged)
}

func TestLoginProxiesBackend(t *testing.T) {
	token := patientTestToken(t)
	srv, store := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/login" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"user":  api.User{ID: "pat-1", Name: "Pat", Role: "patient"},
				"token": token,
			},
		})
	}))

	resp := postJSON(t, srv.URL+"/api/session/login", map[string]string{
		"email": "pat@example.org", "password": "secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cur, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, "pat-1", cur.UserID)
}

func TestLoginBadCredentials(t *testing.T) {
	srv, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
	}))

	resp := postJSON(t, srv.URL+"/api/session/login", map[string]string{
		"email": "pat@example.org", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutClearsSession(t *testing.T) {
	srv, store := newTestGateway(t, nil)
	signIn(store, session.RolePatient)

	resp := postJSON(t, srv.URL+"/api/session/logout", map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err := store.Current()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestChatSendRequiresSession(t *testing.T) {
	srv, _ := newTestGateway(t, nil)
	resp := postJSON(t, srv.URL+"/api/chat/send", map[string]string{
		"receiver_id": "doc-1", "message": "hello",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatSendPersistsEvenWhenSocketDown(t *testing.T) {
	srv, store := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/chats" {
			var msg api.ChatMessage
			json.NewDecoder(r.Body).Decode(&msg)
			msg.ID = "c1"
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"chat": msg}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	signIn(store, session.RolePatient)

	resp := postJSON(t, srv.URL+"/api/chat/send", map[string]string{
		"receiver_id": "doc-1", "message": "hello",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		DeliveredLive bool `json:"delivered_live"`
		Message       struct {
			ID string `json:"_id"`
		} `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "c1", body.Message.ID)
	assert.False(t, body.DeliveredLive)
}

func TestChatSendRejectsBadReceiverID(t *testing.T) {
	srv, store := newTestGateway(t, nil)
	signIn(store, session.RolePatient)

	for _, bad := range []string{"", "doc one", "doc/../other"} {
		resp := postJSON(t, srv.URL+"/api/chat/send", map[string]string{
			"receiver_id": bad, "message": "hello",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "receiver_id %q", bad)
	}
}

// Package gateway is the localhost HTTP surface the embedding UI talks to.
// It exposes session, call, presence and notification state as JSON plus an
// SSE stream of call-state transitions, and guards the role dashboards.
package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carelink/carelink/internal/api"
	"github.com/carelink/carelink/internal/call"
	"github.com/carelink/carelink/internal/presence"
	"github.com/carelink/carelink/internal/session"
	"github.com/carelink/carelink/internal/socket"
	"github.com/carelink/carelink/internal/util"
)

// Gateway bundles the state holders the HTTP surface reads from.
type Gateway struct {
	API      *api.Client
	Sessions *session.Store
	Socket   *socket.Manager
	Calls    *call.Manager
	Presence *presence.Holder

	// Dev enables per-request logging. The gateway is localhost-only and
	// chatty UIs poll it, so request logs are opt-in.
	Dev bool
}

// Router builds the chi router with all routes configured.
func (g *Gateway) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if g.Dev {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/session/login", g.handleLogin)
		r.Post("/session/logout", g.handleLogout)
		r.Get("/session", g.handleSession)

		r.Get("/realtime", g.handleRealtime)

		r.Route("/call", func(r chi.Router) {
			r.Get("/state", g.handleCallState)
			r.Get("/events", g.handleCallEvents)
			r.Get("/debug", g.handleCallDebug)
			r.Post("/start", g.handleCallStart)
			r.Post("/accept", g.handleCallAccept)
			r.Post("/decline", g.handleCallDecline)
			r.Post("/hangup", g.handleCallHangup)
			r.Post("/toggle-audio", g.handleToggleAudio)
			r.Post("/toggle-video", g.handleToggleVideo)
		})

		r.Get("/presence", g.handlePresence)

		r.Route("/chat", g.chatRoutes)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", g.handleNotifications)
			r.Post("/refresh", g.handleNotificationsRefresh)
			r.Post("/{id}/acknowledge", g.handleAcknowledge)
			r.Post("/clear", g.handleNotificationsClear)
		})
	})

	// Role-scoped dashboard subtrees, guarded by the session's role claim.
	r.Route("/{role:patient|doctor|admin}", func(r chi.Router) {
		r.Use(RoleGuard(g.Sessions))
		r.Get("/dashboard", g.handleDashboard)
		r.Get("/dashboard/*", g.handleDashboard)
	})

	return r
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := g.API.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, sess)
}

func (g *Gateway) handleLogout(w http.ResponseWriter, _ *http.Request) {
	g.Calls.Hangup()
	g.API.Logout()
	writeJSON(w, map[string]string{"status": "signed_out"})
}

func (g *Gateway) handleSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := g.Sessions.Current()
	if err != nil {
		http.Error(w, "no active session", http.StatusUnauthorized)
		return
	}
	writeJSON(w, sess)
}

func (g *Gateway) handleRealtime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]bool{
		"connected": g.Socket.Connected(),
		"down":      g.Socket.Down(),
	})
}

func (g *Gateway) handleCallState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, g.Calls.State())
}

// handleCallEvents streams call-state snapshots as SSE. Each connection gets
// its own subscription, cancelled on disconnect so the manager never
// accumulates stale listeners.
func (g *Gateway) handleCallEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	sseHeaders(w)

	ch, cancel := g.Calls.SubscribeState()
	defer cancel()

	// Hangup of the in-flight session gets its own event so the UI can
	// close the call view immediately instead of diffing snapshots.
	var hangup <-chan struct{}
	if sess, ok := g.Calls.ActiveSession(); ok {
		hangup = sess.HangupCh()
	}

	data, _ := json.Marshal(g.Calls.State())
	fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-hangup:
			fmt.Fprint(w, "event: ended\ndata: {}\n\n")
			flusher.Flush()
			hangup = nil
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if sess, ok := g.Calls.ActiveSession(); ok {
				hangup = sess.HangupCh()
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (g *Gateway) handleCallDebug(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"state":   g.Calls.State(),
		"signals": g.Calls.DebugLog(),
	}
	if sess, ok := g.Calls.ActiveSession(); ok {
		resp["session"] = sess.Status()
	}
	writeJSON(w, resp)
}

func (g *Gateway) handleCallStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AppointmentID string `json:"appointment_id"`
		RecipientID   string `json:"recipient_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AppointmentID == "" {
		http.Error(w, "missing appointment_id", http.StatusBadRequest)
		return
	}
	recipient, err := util.ValidateUserID(req.RecipientID)
	if err != nil {
		http.Error(w, "invalid recipient_id: "+err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := g.Calls.StartCall(r.Context(), req.AppointmentID, recipient); err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ringing", "appointment_id": req.AppointmentID})
}

func (g *Gateway) handleCallAccept(w http.ResponseWriter, r *http.Request) {
	if _, err := g.Calls.Accept(r.Context()); err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "accepted"})
}

func (g *Gateway) handleCallDecline(w http.ResponseWriter, r *http.Request) {
	if err := g.Calls.Decline(r.Context()); err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "declined"})
}

func (g *Gateway) handleCallHangup(w http.ResponseWriter, _ *http.Request) {
	g.Calls.Hangup()
	writeJSON(w, map[string]string{"status": "hung_up"})
}

func (g *Gateway) handleToggleAudio(w http.ResponseWriter, _ *http.Request) {
	muted, err := g.Calls.ToggleAudio()
	if err != nil {
		http.Error(w, "no active call", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"muted": muted})
}

func (g *Gateway) handleToggleVideo(w http.ResponseWriter, _ *http.Request) {
	muted, err := g.Calls.ToggleVideo()
	if err != nil {
		http.Error(w, "no active call", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"muted": muted})
}

func (g *Gateway) handlePresence(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"online": g.Presence.OnlineUsers()})
}

func (g *Gateway) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"notifications":  g.Presence.Notifications(),
		"unacknowledged": g.Presence.Unacknowledged(),
	})
}

func (g *Gateway) handleNotificationsRefresh(w http.ResponseWriter, r *http.Request) {
	if err := g.Presence.Refresh(r.Context()); err != nil {
		apiError(w, err)
		return
	}
	g.handleNotifications(w, r)
}

func (g *Gateway) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := g.Presence.Acknowledge(r.Context(), id); err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "acknowledged", "id": id})
}

func (g *Gateway) handleNotificationsClear(w http.ResponseWriter, r *http.Request) {
	if err := g.Presence.Clear(r.Context()); err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "cleared"})
}

// handleDashboard returns the role dashboard summary. The heavy lifting is
// the guard; the payload is whatever the UI needs to render its shell.
func (g *Gateway) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := g.Sessions.Current()
	if err != nil {
		http.Redirect(w, r, signInPath, http.StatusFound)
		return
	}
	resp := map[string]any{
		"user":           sess,
		"connected":      g.Socket.Connected(),
		"call":           g.Calls.State(),
		"online_count":   len(g.Presence.OnlineUsers()),
		"unacknowledged": g.Presence.Unacknowledged(),
	}
	// Best-effort enrichment; the shell renders without it.
	if sess.Role == session.RolePatient {
		if stats, err := g.API.PatientAnalytics(r.Context(), sess.UserID); err == nil {
			resp["analytics"] = stats
		}
	}
	writeJSON(w, resp)
}

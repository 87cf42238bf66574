package gateway

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carelink/carelink/internal/api"
	"github.com/carelink/carelink/internal/socket"
	"github.com/carelink/carelink/internal/util"
)

// chatRoutes mounts the chat surface: messages persist over REST and fan out
// in realtime over the socket, matching how the platform treats the two
// channels (REST is the durable copy, the socket is the live one).
func (g *Gateway) chatRoutes(r chi.Router) {
	r.Post("/send", g.handleChatSend)
	r.Post("/typing", g.handleChatTyping)
	r.Get("/thread/{peerID}", g.handleChatThread)
}

func (g *Gateway) handleChatSend(w http.ResponseWriter, r *http.Request) {
	sess, err := g.Sessions.Current()
	if err != nil {
		http.Error(w, "no active session", http.StatusUnauthorized)
		return
	}
	var req struct {
		ReceiverID string `json:"receiver_id"`
		Message    string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Message == "" {
		http.Error(w, "missing message", http.StatusBadRequest)
		return
	}
	receiver, err := util.ValidateUserID(req.ReceiverID)
	if err != nil {
		http.Error(w, "invalid receiver_id: "+err.Error(), http.StatusBadRequest)
		return
	}

	msg := &api.ChatMessage{
		SenderID:   sess.UserID,
		ReceiverID: receiver,
		Message:    req.Message,
	}
	saved, err := g.API.SendChatMessage(r.Context(), msg)
	if err != nil {
		apiError(w, err)
		return
	}

	// Realtime copy is best-effort: the message is already persisted, the
	// receiver picks it up on next fetch if the socket is down.
	emitErr := g.Socket.Emit(socket.EvChatMessage, socket.ChatEvent{
		SenderID:   sess.UserID,
		ReceiverID: receiver,
		Message:    req.Message,
	})
	writeJSON(w, map[string]any{"message": saved, "delivered_live": emitErr == nil})
}

func (g *Gateway) handleChatTyping(w http.ResponseWriter, r *http.Request) {
	sess, err := g.Sessions.Current()
	if err != nil {
		http.Error(w, "no active session", http.StatusUnauthorized)
		return
	}
	var req struct {
		ReceiverID string `json:"receiver_id"`
		Typing     bool   `json:"typing"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	err = g.Socket.Emit(socket.EvChatTyping, socket.ChatEvent{
		SenderID:   sess.UserID,
		ReceiverID: req.ReceiverID,
		Typing:     req.Typing,
	})
	writeJSON(w, map[string]bool{"sent": err == nil})
}

func (g *Gateway) handleChatThread(w http.ResponseWriter, r *http.Request) {
	sess, err := g.Sessions.Current()
	if err != nil {
		http.Error(w, "no active session", http.StatusUnauthorized)
		return
	}
	peerID := chi.URLParam(r, "peerID")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, meta, err := g.API.ChatThread(r.Context(), sess.UserID, peerID, page, limit)
	if err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, map[string]any{"chats": msgs, "meta": meta})
}

package presence

import (
	"context"
	"fmt"

	"github.com/carelink/carelink/internal/api"
)

// Refresh replaces the local notification list with the server's view.
func (h *Holder) Refresh(ctx context.Context) error {
	sess, err := h.sessions.Current()
	if err != nil {
		return err
	}
	list, err := h.api.ListNotifications(ctx, sess.UserID)
	if err != nil {
		return fmt.Errorf("fetch notifications: %w", err)
	}
	h.mu.Lock()
	h.notifications = list
	h.mu.Unlock()
	h.notify("notifications")
	return nil
}

// Notifications returns a copy of the current list.
func (h *Holder) Notifications() []api.Notification {
	h.mu.RLock()
	out := make([]api.Notification, len(h.notifications))
	copy(out, h.notifications)
	h.mu.RUnlock()
	return out
}

// Unacknowledged counts the notifications still awaiting acknowledgement
// (the badge number).
func (h *Holder) Unacknowledged() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, item := range h.notifications {
		if !item.Acknowledged {
			n++
		}
	}
	return n
}

// Acknowledge marks one notification as read. Remote-authoritative: local
// state changes only after the server accepted the update; a failure leaves
// the local list untouched and surfaces to the caller.
func (h *Holder) Acknowledge(ctx context.Context, id string) error {
	if err := h.api.AcknowledgeNotification(ctx, id); err != nil {
		return fmt.Errorf("acknowledge notification: %w", err)
	}
	h.mu.Lock()
	for i := range h.notifications {
		if h.notifications[i].ID == id {
			h.notifications[i].Acknowledged = true
			break
		}
	}
	h.mu.Unlock()
	h.notify("notifications")
	return nil
}

// Clear deletes all of the user's notifications. Remote-authoritative, like
// Acknowledge.
func (h *Holder) Clear(ctx context.Context) error {
	sess, err := h.sessions.Current()
	if err != nil {
		return err
	}
	if err := h.api.DeleteNotifications(ctx, sess.UserID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	h.mu.Lock()
	h.notifications = nil
	h.mu.Unlock()
	h.notify("notifications")
	return nil
}

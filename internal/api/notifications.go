package api

import (
	"context"
	"net/http"
)

// CreateNotification posts a notification for another user. Used by doctor
// tooling; patient-facing notifications are created server-side.
func (c *Client) CreateNotification(ctx context.Context, n *Notification) (*Notification, error) {
	var resp struct {
		Data struct {
			Notification Notification `json:"notification"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/notifications", n, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Notification, nil
}

// ListNotifications fetches all notifications addressed to userID.
func (c *Client) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	var resp struct {
		Data struct {
			Notifications []Notification `json:"notifications"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/notifications/user/"+userID, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Notifications == nil {
		resp.Data.Notifications = []Notification{}
	}
	return resp.Data.Notifications, nil
}

// AcknowledgeNotification marks one notification as read.
func (c *Client) AcknowledgeNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, "/notifications/"+id+"/acknowledge", nil, nil)
}

// DeleteNotifications clears all notifications for userID.
func (c *Client) DeleteNotifications(ctx context.Context, userID string) error {
	body := map[string]string{"receiver": userID}
	return c.do(ctx, http.MethodDelete, "/notifications", body, nil)
}

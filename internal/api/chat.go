package api

import (
	"context"
	"net/http"
)

// SendChatMessage persists one chat message. Realtime delivery goes over the
// socket; this call is what makes the message survive a reload.
func (c *Client) SendChatMessage(ctx context.Context, msg *ChatMessage) (*ChatMessage, error) {
	var resp struct {
		Data struct {
			Chat ChatMessage `json:"chat"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/chats", msg, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Chat, nil
}

// ChatThread fetches the paged conversation between two users.
func (c *Client) ChatThread(ctx context.Context, senderID, receiverID string, page, limit int) ([]ChatMessage, Meta, error) {
	return c.chatList(ctx, "/chats/"+senderID+"/"+receiverID+pageQuery(page, limit))
}

// ChatsForReceiver fetches all messages addressed to receiverID, across
// senders (the doctor's monitored-message view).
func (c *Client) ChatsForReceiver(ctx context.Context, receiverID string, page, limit int) ([]ChatMessage, Meta, error) {
	return c.chatList(ctx, "/chats/"+receiverID+pageQuery(page, limit))
}

func (c *Client) chatList(ctx context.Context, path string) ([]ChatMessage, Meta, error) {
	var resp struct {
		Data struct {
			Chats []ChatMessage `json:"chats"`
			Meta  Meta          `json:"meta"`
		} `json:"data"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, Meta{}, err
	}
	if resp.Data.Chats == nil {
		resp.Data.Chats = []ChatMessage{}
	}
	return resp.Data.Chats, resp.Data.Meta, nil
}

package gateway

import (
	"context"
	"net/http"

	"clawchat/internal/domain"
)

// ChatStream posts a streaming chat request to /api/chat.
func (c *Client) ChatStream(ctx context.Context, chatReq domain.ChatRequest) (domain.EventStream, error) {
	chatReq.Stream = true
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat", chatReq)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	return &Stream{body: resp.Body, dec: NewDecoder(resp.Body, c.logger)}, nil
}

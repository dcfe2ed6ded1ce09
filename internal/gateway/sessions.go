package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"clawchat/internal/domain"
)

// flexTime accepts unix milliseconds or an RFC 3339 string.
type flexTime int64

func (t *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*t = 0
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			*t = flexTime(n)
			return nil
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("bad timestamp %q: %w", s, err)
		}
		*t = flexTime(ts.UnixMilli())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*t = flexTime(int64(f))
	return nil
}

type wireSession struct {
	ID        string   `json:"id"`
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	AgentID   string   `json:"agentId"`
	Source    string   `json:"source"`
	UpdatedAt flexTime `json:"updatedAt"`
}

// ListSessions returns the gateway's sessions in the order it sent them.
func (c *Client) ListSessions(ctx context.Context) ([]domain.RemoteSession, error) {
	var data struct {
		Sessions []wireSession `json:"sessions"`
	}
	if err := c.getJSON(ctx, "/api/sessions", &data); err != nil {
		return nil, err
	}
	out := make([]domain.RemoteSession, 0, len(data.Sessions))
	for _, s := range data.Sessions {
		out = append(out, domain.RemoteSession{
			ID:        s.ID,
			Key:       s.Key,
			Name:      s.Name,
			Label:     s.Label,
			AgentID:   s.AgentID,
			Source:    s.Source,
			UpdatedAt: int64(s.UpdatedAt),
		})
	}
	return out, nil
}

type wireMessage struct {
	Role      domain.Role    `json:"role"`
	Content   domain.Content `json:"content"`
	Timestamp flexTime       `json:"timestamp"`
}

// SessionMessages fetches the remote history of one session. Only role,
// content and timestamp are kept.
func (c *Client) SessionMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var data struct {
		Messages []wireMessage `json:"messages"`
	}
	if err := c.getJSON(ctx, "/api/session/"+url.PathEscape(sessionID)+"/messages", &data); err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(data.Messages))
	for _, m := range data.Messages {
		out = append(out, domain.Message{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: int64(m.Timestamp),
		})
	}
	return out, nil
}

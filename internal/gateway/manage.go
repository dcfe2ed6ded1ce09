package gateway

import (
	"context"

	"clawchat/internal/domain"
)

func (c *Client) Status(ctx context.Context) (*domain.SystemStatus, error) {
	var st domain.SystemStatus
	if err := c.getJSON(ctx, "/api/status", &st); err != nil {
		return nil, err
	}
	if st.Status == "" {
		st.Status = domain.StatusOnline
	}
	return &st, nil
}

// Agents lists the agents configured on the gateway.
func (c *Client) Agents(ctx context.Context) ([]domain.Agent, error) {
	var data struct {
		Agents []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Emoji       string `json:"emoji"`
			Description string `json:"description"`
		} `json:"agents"`
	}
	if err := c.getJSON(ctx, "/api/agents", &data); err != nil {
		return nil, err
	}
	out := make([]domain.Agent, 0, len(data.Agents))
	for _, a := range data.Agents {
		name := a.Name
		if name == "" {
			name = a.ID
		}
		out = append(out, domain.Agent{
			ID:       a.ID,
			Name:     name,
			Identity: domain.Identity{Emoji: a.Emoji, Name: name, Theme: a.Description},
		})
	}
	return out, nil
}

func (c *Client) Channels(ctx context.Context) (map[string]domain.ChannelInfo, error) {
	var data struct {
		Channels map[string]struct {
			Enabled      bool  `json:"enabled"`
			AccountCount *int  `json:"accountCount"`
			Accounts     []any `json:"accounts"`
		} `json:"channels"`
	}
	if err := c.getJSON(ctx, "/api/channels", &data); err != nil {
		return nil, err
	}
	out := make(map[string]domain.ChannelInfo, len(data.Channels))
	for name, ch := range data.Channels {
		count := len(ch.Accounts)
		if ch.AccountCount != nil {
			count = *ch.AccountCount
		}
		out[name] = domain.ChannelInfo{Enabled: ch.Enabled, AccountCount: count}
	}
	return out, nil
}

func (c *Client) Schedules(ctx context.Context) ([]domain.Schedule, error) {
	var data struct {
		Schedules []domain.Schedule `json:"schedules"`
	}
	if err := c.getJSON(ctx, "/api/schedules", &data); err != nil {
		return nil, err
	}
	return data.Schedules, nil
}

package gateway

import (
	"context"
	"errors"
	"net/url"

	"clawchat/internal/domain"
)

func filesPath(agentID, path string) string {
	return "/api/agent/" + url.PathEscape(agentID) + "/files?path=" + url.QueryEscape(path)
}

// ListFiles lists a directory of the agent's workspace ("" is the root).
func (c *Client) ListFiles(ctx context.Context, agentID, path string) ([]domain.FileItem, error) {
	var data struct {
		Files []domain.FileItem `json:"files"`
		Error string            `json:"error"`
	}
	if err := c.getJSON(ctx, filesPath(agentID, path), &data); err != nil {
		return nil, err
	}
	if data.Error != "" && len(data.Files) == 0 {
		return nil, errors.New(data.Error)
	}
	if data.Files == nil {
		data.Files = []domain.FileItem{}
	}
	return data.Files, nil
}

// ReadFile reads one file of the agent's workspace. A read the gateway
// refused comes back with FileContent.Error set and a nil error.
func (c *Client) ReadFile(ctx context.Context, agentID, path string) (*domain.FileContent, error) {
	var fc domain.FileContent
	if err := c.getJSON(ctx, filesPath(agentID, path), &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

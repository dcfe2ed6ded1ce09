package domain

import "context"

// Gateway is the remote backend the chat client talks to.
type Gateway interface {
	ListSessions(ctx context.Context) ([]RemoteSession, error)
	SessionMessages(ctx context.Context, sessionID string) ([]Message, error)
	// ChatStream issues a streaming chat request. A non-2xx answer is an error;
	// otherwise the caller owns the returned stream and must Close it.
	ChatStream(ctx context.Context, req ChatRequest) (EventStream, error)
	ListFiles(ctx context.Context, agentID, path string) ([]FileItem, error)
	ReadFile(ctx context.Context, agentID, path string) (*FileContent, error)

	Status(ctx context.Context) (*SystemStatus, error)
	Agents(ctx context.Context) ([]Agent, error)
	Channels(ctx context.Context) (map[string]ChannelInfo, error)
	Schedules(ctx context.Context) ([]Schedule, error)
}

type ChatMessage struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	User     string        `json:"user,omitempty"`
}

// StreamEventType classifies a streaming event.
type StreamEventType string

const (
	StreamToken    StreamEventType = "token"
	StreamThinking StreamEventType = "thinking"
	StreamDone     StreamEventType = "done"
	StreamError    StreamEventType = "error"
)

// StreamEvent is a single increment decoded from a chat response stream.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
}

// EventStream yields decoded events. Recv returns io.EOF once the stream
// has ended, whether by sentinel or by end of body.
type EventStream interface {
	Recv() (StreamEvent, error)
	Close() error
}

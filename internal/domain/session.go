package domain

// DefaultSessionName is given to fresh sessions until the first message renames them.
const DefaultSessionName = "New chat"

// ImageSessionName names a session whose first message had no text.
const ImageSessionName = "Image message"

// Session is a chat thread owned by one agent.
// ID is the canonical identifier; Key is an optional display/routing key
// (e.g. "agent:main:abc") supplied by the gateway.
type Session struct {
	ID        string `json:"id"`
	Key       string `json:"key,omitempty"`
	Name      string `json:"name"`
	Preview   string `json:"preview"`
	AgentID   string `json:"agentId"`
	Source    string `json:"source,omitempty"`
	IsGateway bool   `json:"isGateway,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"` // unix ms
}

// RemoteSession is a session entry as listed by the gateway.
type RemoteSession struct {
	ID        string `json:"id"`
	Key       string `json:"key,omitempty"`
	Name      string `json:"name,omitempty"`
	Label     string `json:"label,omitempty"`
	AgentID   string `json:"agentId,omitempty"`
	Source    string `json:"source,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

type ToastType string

const (
	ToastSuccess ToastType = "success"
	ToastError   ToastType = "error"
)

type Toast struct {
	ID      int64     `json:"id"` // creation time, unix ms
	Message string    `json:"message"`
	Type    ToastType `json:"type"`
}

// UploadedImage is an image attached to the next outgoing message.
type UploadedImage struct {
	Name    string `json:"name"`
	Type    string `json:"type"` // MIME type
	DataURL string `json:"dataUrl"`
	Preview string `json:"preview"`
}

type ViewType string

const (
	ViewChat     ViewType = "chat"
	ViewBoard    ViewType = "board"
	ViewSchedule ViewType = "schedule"
	ViewManage   ViewType = "manage"
	ViewBacklog  ViewType = "backlog"
)

// ParseView returns the view for a name, and false if the name is unknown.
func ParseView(s string) (ViewType, bool) {
	switch v := ViewType(s); v {
	case ViewChat, ViewBoard, ViewSchedule, ViewManage, ViewBacklog:
		return v, true
	}
	return "", false
}

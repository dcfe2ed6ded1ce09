package domain

// FileItem is one entry of an agent workspace listing.
type FileItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "file" | "directory"
	Size int64  `json:"size,omitempty"`
}

func (f FileItem) IsDir() bool { return f.Type == "directory" }

// FileContent is the gateway's answer to a file read. Content is text, or a
// data URL for images. Error is set when the gateway could not read the file.
type FileContent struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CronJob mirrors a scheduled task configured on the gateway.
type CronJob struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Schedule          string `json:"schedule"`
	Enabled           bool   `json:"enabled"`
	SessionTarget     string `json:"sessionTarget,omitempty"`
	NextRun           string `json:"nextRun,omitempty"`
	LastRun           string `json:"lastRun,omitempty"`
	LastStatus        string `json:"lastStatus,omitempty"`
	LastDuration      string `json:"lastDuration,omitempty"`
	LastError         string `json:"lastError,omitempty"`
	ConsecutiveErrors int    `json:"consecutiveErrors,omitempty"`
	Message           string `json:"message,omitempty"`
	MessagePreview    string `json:"messagePreview,omitempty"`
}

// Schedule groups the cron jobs of one agent workspace.
type Schedule struct {
	Workspace   string    `json:"workspace"`
	Emoji       string    `json:"emoji"`
	Name        string    `json:"name"`
	HasSchedule bool      `json:"hasSchedule"`
	Tasks       []CronJob `json:"tasks"`
}

type ChannelInfo struct {
	Enabled      bool `json:"enabled"`
	AccountCount int  `json:"accountCount"`
}

type GatewayStatus string

const (
	StatusOnline  GatewayStatus = "online"
	StatusOffline GatewayStatus = "offline"
	StatusLoading GatewayStatus = "loading"
	StatusError   GatewayStatus = "error"
)

type SystemStatus struct {
	Status   GatewayStatus `json:"status"`
	Gateway  *GatewayPort  `json:"gateway,omitempty"`
	NgrokURL string        `json:"ngrokUrl,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type GatewayPort struct {
	Port int `json:"port"`
}

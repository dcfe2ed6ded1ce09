package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "toolResult"
)

// Message is one entry in a session's chat log. It is persisted verbatim as JSON.
type Message struct {
	Role      Role     `json:"role"`
	Content   Content  `json:"content"`
	Timestamp int64    `json:"timestamp,omitempty"` // unix ms
	Images    []string `json:"images,omitempty"`    // preview data URLs
	Thinking  string   `json:"thinking,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Content holds either plain text or an ordered list of typed parts.
// A non-nil Parts slice wins over Text when encoding.
type Content struct {
	Text  string
	Parts []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"` // "text" | "image_url" | "thinking"
	Text     string    `json:"text,omitempty"`
	Thinking string    `json:"thinking,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

func TextContent(s string) Content {
	return Content{Text: s}
}

func PartsContent(parts ...ContentPart) Content {
	if parts == nil {
		parts = []ContentPart{}
	}
	return Content{Parts: parts}
}

func (c Content) IsParts() bool { return c.Parts != nil }

// String returns the readable text: the plain text, or the text parts joined.
func (c Content) String() string {
	if !c.IsParts() {
		return c.Text
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		if p.Type == "text" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsParts() {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = Content{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Content{Text: s}
		return nil
	case data[0] == '[':
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*c = PartsContent(parts...)
		return nil
	default:
		return fmt.Errorf("content must be a string or an array, got %s", truncateJSON(data))
	}
}

func truncateJSON(b []byte) string {
	if len(b) > 32 {
		return string(b[:32]) + "..."
	}
	return string(b)
}

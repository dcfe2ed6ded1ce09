package gateway

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"clawchat/internal/domain"
)

const doneSentinel = "[DONE]"

// Decoder turns a chat response body into stream events. Lines look like
// "data: <json>"; anything else is ignored. Payloads come in two shapes:
//
//	{"type":"response.output_text.delta","delta":"..."}
//	{"choices":[{"delta":{"content": "..." | [{"type":"text"|"thinking",...}]}}]}
//
// Malformed payloads are skipped.
type Decoder struct {
	r       *bufio.Reader
	logger  *slog.Logger
	pending []domain.StreamEvent
	done    bool
}

func NewDecoder(r io.Reader, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{r: bufio.NewReader(r), logger: logger}
}

// Recv returns the next token or thinking event, or io.EOF once the
// sentinel is seen or the body ends.
func (d *Decoder) Recv() (domain.StreamEvent, error) {
	for {
		if len(d.pending) > 0 {
			ev := d.pending[0]
			d.pending = d.pending[1:]
			return ev, nil
		}
		if d.done {
			return domain.StreamEvent{}, io.EOF
		}

		line, err := d.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return domain.StreamEvent{}, err
		}
		if errors.Is(err, io.EOF) {
			// A trailing line without newline still counts.
			d.done = true
		}
		d.handleLine(line)
	}
}

func (d *Decoder) handleLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	payload, ok := strings.CutPrefix(line, "data: ")
	if !ok {
		return
	}
	if strings.TrimSpace(payload) == doneSentinel {
		d.done = true
		return
	}
	events, err := parseChunk([]byte(payload))
	if err != nil {
		d.logger.Debug("skipping malformed stream chunk", "err", err, "chunk", truncate(payload, 80))
		return
	}
	d.pending = append(d.pending, events...)
}

type chunk struct {
	Type    string          `json:"type"`
	Delta   json.RawMessage `json:"delta"`
	Choices []struct {
		Delta struct {
			Content json.RawMessage `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type contentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Thinking string `json:"thinking"`
}

func parseChunk(data []byte) ([]domain.StreamEvent, error) {
	var c chunk
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	if c.Type == "response.output_text.delta" {
		var s string
		if len(c.Delta) > 0 {
			if err := json.Unmarshal(c.Delta, &s); err != nil {
				return nil, err
			}
		}
		return tokenEvents(s), nil
	}

	if len(c.Choices) == 0 {
		return nil, nil
	}
	raw := bytes.TrimSpace(c.Choices[0].Delta.Content)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return tokenEvents(s), nil
	case '[':
		var items []contentItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		var events []domain.StreamEvent
		for _, it := range items {
			switch it.Type {
			case "thinking":
				if it.Thinking != "" {
					events = append(events, domain.StreamEvent{Type: domain.StreamThinking, Content: it.Thinking})
				}
			case "text":
				if it.Text != "" {
					events = append(events, domain.StreamEvent{Type: domain.StreamToken, Content: it.Text})
				}
			}
		}
		return events, nil
	default:
		return nil, errors.New("unsupported delta content")
	}
}

func tokenEvents(s string) []domain.StreamEvent {
	if s == "" {
		return nil
	}
	return []domain.StreamEvent{{Type: domain.StreamToken, Content: s}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Stream is a live chat response. Close releases the connection.
type Stream struct {
	body io.ReadCloser
	dec  *Decoder
}

func (s *Stream) Recv() (domain.StreamEvent, error) { return s.dec.Recv() }

func (s *Stream) Close() error { return s.body.Close() }

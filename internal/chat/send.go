package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"clawchat/internal/bus"
	"clawchat/internal/domain"
	"clawchat/internal/metrics"
)

const sessionNameLen = 30

// SendMessage sends the input text and attached images to the current
// session's agent and streams the reply into the log. It returns
// ErrEmptyMessage or ErrBusy without side effects. Any transport or stream
// failure is recorded as an assistant message and also returned. The
// session's log is persisted when the call ends, whether or not it is
// still the current session.
func (s *Store) SendMessage(ctx context.Context) error {
	s.mu.Lock()
	text := strings.TrimSpace(s.state.Input)
	if text == "" && len(s.state.Images) == 0 {
		s.mu.Unlock()
		return ErrEmptyMessage
	}
	if s.state.Loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state.Loading = true

	created := false
	if s.sessionLocked(s.state.CurrentSession) == nil {
		sess := s.newSessionLocked()
		s.state.Sessions = append([]domain.Session{sess}, s.state.Sessions...)
		s.rebuildIndexLocked()
		s.state.CurrentSession = sess.ID
		s.state.Messages = nil
		created = true
	}
	sess := s.sessionLocked(s.state.CurrentSession)
	agentID := s.storageAgentLocked(sess.ID)

	content, previews := buildContent(text, s.state.Images)
	userMsg := domain.Message{
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: s.now().UnixMilli(),
		Images:    previews,
	}
	s.state.Messages = append(s.state.Messages, userMsg)
	s.state.Input = ""
	s.state.Images = nil

	renamed := false
	if sess.Name == domain.DefaultSessionName {
		sess.Name = sessionName(text)
		sess.Preview = sess.Name
		renamed = true
	}
	sess.UpdatedAt = userMsg.Timestamp

	fl := &inflight{
		sessionID: sess.ID,
		agentID:   agentID,
		log:       slices.Clone(s.state.Messages),
		attached:  true,
	}
	s.inflight = fl
	req := domain.ChatRequest{
		Model:    s.modelPrefix + ":" + agentID,
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: content}},
		Stream:   true,
		User:     chatUser(*sess),
	}
	sessName := sess.Name
	st := s.sessionStateLocked()
	s.mu.Unlock()

	if created {
		s.emit(bus.EventSessionCreated, map[string]any{"session": fl.sessionID, "agent": agentID})
	}
	if renamed {
		s.emit(bus.EventSessionRenamed, map[string]any{"session": fl.sessionID, "name": sessName})
	}
	s.persistSessions(ctx, st)
	s.emit(bus.EventLoadingChanged, map[string]any{"loading": true})
	s.emit(bus.EventImagesChanged, map[string]any{"count": 0})
	s.emit(bus.EventMessageAppended, map[string]any{"session": fl.sessionID, "role": string(domain.RoleUser)})

	metrics.ChatRequests.Inc()
	metrics.StreamsActive.Inc()
	start := time.Now()
	err := s.stream(ctx, fl, req)
	metrics.StreamsActive.Dec()
	metrics.ChatLatency.ObserveSince(start)
	if err != nil {
		metrics.ChatErrors.Inc()
		s.logger.Warn("chat request failed", "session", fl.sessionID, "agent", agentID, "err", err)
		s.appendInflight(fl, domain.Message{
			Role:      domain.RoleAssistant,
			Content:   domain.TextContent("Sorry, an error occurred: " + err.Error()),
			Timestamp: s.now().UnixMilli(),
			Error:     err.Error(),
		})
	}

	s.mu.Lock()
	s.state.Loading = false
	if s.inflight == fl {
		s.inflight = nil
	}
	final := slices.Clone(fl.log)
	s.mu.Unlock()

	s.persistMessages(ctx, fl.agentID, fl.sessionID, final)
	s.emit(bus.EventMessageCompleted, map[string]any{"session": fl.sessionID, "error": err != nil})
	s.emit(bus.EventLoadingChanged, map[string]any{"loading": false})
	return err
}

func (s *Store) stream(ctx context.Context, fl *inflight, req domain.ChatRequest) error {
	if s.gw == nil {
		return errors.New("no gateway configured")
	}
	es, err := s.gw.ChatStream(ctx, req)
	if err != nil {
		return err
	}
	defer es.Close()

	s.appendInflight(fl, domain.Message{
		Role:      domain.RoleAssistant,
		Content:   domain.TextContent(""),
		Timestamp: s.now().UnixMilli(),
	})

	for {
		ev, err := es.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
		switch ev.Type {
		case domain.StreamToken, domain.StreamThinking:
			s.applyDelta(fl, ev)
		case domain.StreamDone:
			return nil
		case domain.StreamError:
			return errors.New(ev.Content)
		}
	}
}

// appendInflight adds a message to the streaming log, and to the visible
// log while the session is current.
func (s *Store) appendInflight(fl *inflight, m domain.Message) {
	s.mu.Lock()
	fl.log = append(fl.log, m)
	if fl.attached {
		s.state.Messages = append(s.state.Messages, m)
	}
	s.mu.Unlock()
	s.emit(bus.EventMessageAppended, map[string]any{"session": fl.sessionID, "role": string(m.Role)})
}

func (s *Store) applyDelta(fl *inflight, ev domain.StreamEvent) {
	metrics.StreamDeltas.Inc()
	s.mu.Lock()
	i := len(fl.log) - 1
	m := &fl.log[i]
	if ev.Type == domain.StreamThinking {
		m.Thinking += ev.Content
	} else {
		m.Content.Text += ev.Content
	}
	if fl.attached && len(s.state.Messages) == len(fl.log) {
		s.state.Messages[i] = *m
	}
	s.mu.Unlock()
	s.emit(bus.EventMessageDelta, map[string]any{
		"session": fl.sessionID,
		"kind":    string(ev.Type),
		"content": ev.Content,
	})
}

// buildContent returns plain text content, or parts when images are
// attached: the text part first when present, then one image part each.
func buildContent(text string, images []domain.UploadedImage) (domain.Content, []string) {
	if len(images) == 0 {
		return domain.TextContent(text), nil
	}
	parts := make([]domain.ContentPart, 0, len(images)+1)
	if text != "" {
		parts = append(parts, domain.ContentPart{Type: "text", Text: text})
	}
	previews := make([]string, 0, len(images))
	for _, img := range images {
		parts = append(parts, domain.ContentPart{Type: "image_url", ImageURL: &domain.ImageURL{URL: img.DataURL}})
		previews = append(previews, img.Preview)
	}
	return domain.PartsContent(parts...), previews
}

func sessionName(text string) string {
	if text == "" {
		return domain.ImageSessionName
	}
	r := []rune(text)
	if len(r) > sessionNameLen {
		r = r[:sessionNameLen]
	}
	return string(r)
}

// ClearChat persists the current log and then empties it.
func (s *Store) ClearChat(ctx context.Context) {
	s.mu.Lock()
	f := s.currentFlushLocked()
	s.state.Messages = nil
	s.mu.Unlock()

	s.applyFlush(ctx, f)
	s.emit(bus.EventMessagesCleared, nil)
}

// AddImage attaches an image to the next message.
func (s *Store) AddImage(img domain.UploadedImage) {
	if img.Preview == "" {
		img.Preview = img.DataURL
	}
	s.mu.Lock()
	s.state.Images = append(s.state.Images, img)
	n := len(s.state.Images)
	s.mu.Unlock()
	s.emit(bus.EventImagesChanged, map[string]any{"count": n})
}

// AddImageFile reads an image from disk and attaches it. Files whose MIME
// type is not image/* are skipped and reported as false.
func (s *Store) AddImageFile(path string) (bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType, ok := imageTypes[strings.TrimPrefix(ext, ".")]
	if !ok {
		mimeType, _, _ = strings.Cut(mime.TypeByExtension(ext), ";")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		s.logger.Debug("skipping non-image attachment", "path", path, "mime", mimeType)
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read image: %w", err)
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	s.AddImage(domain.UploadedImage{
		Name:    filepath.Base(path),
		Type:    mimeType,
		DataURL: dataURL,
		Preview: dataURL,
	})
	return true, nil
}

// RemoveImage drops the attachment at index i. Out-of-range indexes are ignored.
func (s *Store) RemoveImage(i int) {
	s.mu.Lock()
	if i < 0 || i >= len(s.state.Images) {
		s.mu.Unlock()
		return
	}
	s.state.Images = slices.Delete(s.state.Images, i, i+1)
	n := len(s.state.Images)
	s.mu.Unlock()
	s.emit(bus.EventImagesChanged, map[string]any{"count": n})
}

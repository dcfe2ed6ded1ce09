package chat

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clawchat/internal/bus"
	"clawchat/internal/domain"
	"clawchat/internal/gateway"
	"clawchat/internal/metrics"
)

func TestSendMessage_StreamsReply(t *testing.T) {
	gw := &fakeGateway{chatBody: abReply}
	s, local := newTestStore(t, gw)
	ctx := context.Background()

	var deltas []string
	s.Bus().On(bus.EventMessageDelta, func(e bus.Event) {
		deltas = append(deltas, e.Payload["content"].(string))
	})

	sess := s.CreateSession(ctx, "main")
	s.SetInput("  hello there  ")
	if err := s.SendMessage(ctx); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user + assistant, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[0].Content.String() != "hello there" {
		t.Errorf("user message = %+v", msgs[0])
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].Content.String() != "ab" {
		t.Errorf("assistant message = %+v", msgs[1])
	}
	if strings.Join(deltas, "|") != "a|b" {
		t.Errorf("deltas = %v", deltas)
	}

	reqs := gw.chatRequests()
	if len(reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(reqs))
	}
	if reqs[0].Model != "openclaw:main" || !reqs[0].Stream || reqs[0].User != sess.ID {
		t.Errorf("request = %+v", reqs[0])
	}

	st := s.Snapshot()
	if st.Loading || st.Input != "" {
		t.Errorf("loading=%v input=%q after send", st.Loading, st.Input)
	}
	if st.Sessions[0].Name != "hello there" || st.Sessions[0].Preview != "hello there" {
		t.Errorf("session not renamed: name %q preview %q", st.Sessions[0].Name, st.Sessions[0].Preview)
	}
	if saved := local.Messages(ctx, "main", sess.ID); len(saved) != 2 || saved[1].Content.String() != "ab" {
		t.Errorf("log not persisted: %+v", saved)
	}
}

func TestSendMessage_ThinkingAndDeltaShapes(t *testing.T) {
	body := `data: {"choices":[{"delta":{"content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"x"}]}}]}` + "\n" +
		`data: {"type":"response.output_text.delta","delta":"y"}` + "\n" +
		"data: [DONE]\n"
	s, _ := newTestStore(t, &fakeGateway{chatBody: body})
	s.SetInput("q")
	if err := s.SendMessage(context.Background()); err != nil {
		t.Fatal(err)
	}
	reply := s.Messages()[1]
	if reply.Content.String() != "xy" || reply.Thinking != "hmm" {
		t.Errorf("reply content=%q thinking=%q", reply.Content.String(), reply.Thinking)
	}
}

func TestSendMessage_EmptyIsNoop(t *testing.T) {
	gw := &fakeGateway{chatBody: abReply}
	s, _ := newTestStore(t, gw)
	s.SetInput("   ")

	if err := s.SendMessage(context.Background()); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(s.Messages()) != 0 || len(gw.chatRequests()) != 0 {
		t.Error("empty send must not append or issue a request")
	}
}

func TestSendMessage_BusyIsNoop(t *testing.T) {
	pr, pw := io.Pipe()
	gw := &fakeGateway{chatPipe: pr}
	s, _ := newTestStore(t, gw)
	ctx := context.Background()

	streaming := make(chan struct{}, 1)
	s.Bus().On(bus.EventMessageDelta, func(bus.Event) {
		select {
		case streaming <- struct{}{}:
		default:
		}
	})

	s.SetInput("first")
	done := make(chan error, 1)
	go func() { done <- s.SendMessage(ctx) }()

	if _, err := io.WriteString(pw, "data: {\"choices\":[{\"delta\":{\"content\":\"par\"}}]}\n"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-streaming:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not start")
	}

	s.SetInput("second")
	if err := s.SendMessage(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if n := len(gw.chatRequests()); n != 1 {
		t.Errorf("busy send issued a request: %d", n)
	}

	io.WriteString(pw, "data: {\"choices\":[{\"delta\":{\"content\":\"tial\"}}]}\n")
	pw.Close()
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}
	msgs := s.Messages()
	if len(msgs) != 2 || msgs[1].Content.String() != "partial" {
		t.Errorf("unexpected log: %+v", msgs)
	}
	if s.Snapshot().Input != "second" {
		t.Error("rejected input should be kept")
	}
}

func TestSendMessage_HTTPErrorRecorded(t *testing.T) {
	gw := &fakeGateway{chatErr: &gateway.StatusError{Code: 502}}
	s, local := newTestStore(t, gw)
	ctx := context.Background()
	sess := s.CreateSession(ctx, "main")

	s.SetInput("hi")
	err := s.SendMessage(ctx)
	var se *gateway.StatusError
	if !errors.As(err, &se) || se.Code != 502 {
		t.Fatalf("expected StatusError 502, got %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user + error message, got %d", len(msgs))
	}
	if msgs[1].Role != domain.RoleAssistant || msgs[1].Error != "HTTP 502" || !strings.Contains(msgs[1].Content.String(), "HTTP 502") {
		t.Errorf("error message = %+v", msgs[1])
	}
	if s.Snapshot().Loading {
		t.Error("loading flag not cleared")
	}
	if saved := local.Messages(ctx, "main", sess.ID); len(saved) != 2 {
		t.Errorf("failed exchange not persisted: %d", len(saved))
	}
}

func TestSendMessage_ImagesOnly(t *testing.T) {
	gw := &fakeGateway{chatBody: abReply}
	s, _ := newTestStore(t, gw)
	s.AddImage(domain.UploadedImage{Name: "a.png", Type: "image/png", DataURL: "data:image/png;base64,AAAA"})

	if err := s.SendMessage(context.Background()); err != nil {
		t.Fatal(err)
	}
	user := s.Messages()[0]
	parts := user.Content.Parts
	if len(parts) != 1 || parts[0].Type != "image_url" || parts[0].ImageURL.URL != "data:image/png;base64,AAAA" {
		t.Errorf("parts = %+v", parts)
	}
	if len(user.Images) != 1 || user.Images[0] != "data:image/png;base64,AAAA" {
		t.Errorf("previews = %v", user.Images)
	}

	st := s.Snapshot()
	if len(st.Images) != 0 {
		t.Error("attachments should be cleared after send")
	}
	if st.Sessions[0].Name != domain.ImageSessionName {
		t.Errorf("session name = %q", st.Sessions[0].Name)
	}
	if got := gw.chatRequests()[0].Messages[0].Content; !got.IsParts() {
		t.Error("request content should be parts")
	}
}

func TestSendMessage_TextThenImages(t *testing.T) {
	content, previews := buildContent("look", []domain.UploadedImage{
		{DataURL: "data:1", Preview: "p1"},
		{DataURL: "data:2", Preview: "p2"},
	})
	if len(content.Parts) != 3 || content.Parts[0].Text != "look" || content.Parts[2].ImageURL.URL != "data:2" {
		t.Errorf("parts = %+v", content.Parts)
	}
	if strings.Join(previews, ",") != "p1,p2" {
		t.Errorf("previews = %v", previews)
	}
}

func TestSessionName(t *testing.T) {
	long := strings.Repeat("é", 40)
	if got := sessionName(long); len([]rune(got)) != 30 {
		t.Errorf("name should be cut to 30 runes, got %d", len([]rune(got)))
	}
	if got := sessionName(""); got != domain.ImageSessionName {
		t.Errorf("sessionName(\"\") = %q", got)
	}
}

func TestSendMessage_SwitchMidStreamPersistsOriginal(t *testing.T) {
	pr, pw := io.Pipe()
	gw := &fakeGateway{chatPipe: pr}
	s, local := newTestStore(t, gw)
	ctx := context.Background()

	streaming := make(chan struct{}, 1)
	s.Bus().On(bus.EventMessageDelta, func(bus.Event) {
		select {
		case streaming <- struct{}{}:
		default:
		}
	})

	origin := s.CreateSession(ctx, "main")
	s.SetInput("long question")
	done := make(chan error, 1)
	go func() { done <- s.SendMessage(ctx) }()

	io.WriteString(pw, "data: {\"choices\":[{\"delta\":{\"content\":\"one \"}}]}\n")
	<-streaming
	other := s.CreateSession(ctx, "code")

	io.WriteString(pw, "data: {\"choices\":[{\"delta\":{\"content\":\"two\"}}]}\ndata: [DONE]\n")
	pw.Close()
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if msgs := s.Messages(); len(msgs) != 0 {
		t.Errorf("reply leaked into the other session: %+v", msgs)
	}
	if s.Snapshot().CurrentSession != other.ID {
		t.Error("current session changed by the stream")
	}
	saved := local.Messages(ctx, "main", origin.ID)
	if len(saved) != 2 || saved[1].Content.String() != "one two" {
		t.Errorf("origin log = %+v", saved)
	}

	if err := s.SwitchSession(ctx, origin.ID); err != nil {
		t.Fatal(err)
	}
	if msgs := s.Messages(); len(msgs) != 2 || msgs[1].Content.String() != "one two" {
		t.Errorf("reloaded origin log = %+v", msgs)
	}
}

func TestAttachments(t *testing.T) {
	s, _ := newTestStore(t, nil)
	dir := t.TempDir()
	img := filepath.Join(dir, "pic.PNG")
	txt := filepath.Join(dir, "notes.txt")
	os.WriteFile(img, []byte{0x89, 'P', 'N', 'G'}, 0o600)
	os.WriteFile(txt, []byte("hi"), 0o600)

	ok, err := s.AddImageFile(img)
	if err != nil || !ok {
		t.Fatalf("AddImageFile(png) = %v, %v", ok, err)
	}
	ok, err = s.AddImageFile(txt)
	if err != nil || ok {
		t.Fatalf("AddImageFile(txt) = %v, %v", ok, err)
	}
	if _, err := s.AddImageFile(filepath.Join(dir, "missing.jpg")); err == nil {
		t.Error("expected error for missing file")
	}

	images := s.Snapshot().Images
	if len(images) != 1 || images[0].Type != "image/png" || !strings.HasPrefix(images[0].DataURL, "data:image/png;base64,") {
		t.Fatalf("images = %+v", images)
	}
	if images[0].Preview != images[0].DataURL {
		t.Error("preview should duplicate the data URL")
	}

	s.RemoveImage(5)
	s.RemoveImage(0)
	if n := len(s.Snapshot().Images); n != 0 {
		t.Errorf("expected no attachments, got %d", n)
	}
}

func TestSendMessage_CountsRequests(t *testing.T) {
	gw := &fakeGateway{chatBody: abReply}
	s, _ := newTestStore(t, gw)
	ctx := context.Background()

	reqs := metrics.ChatRequests.Value()
	deltas := metrics.StreamDeltas.Value()
	latency := metrics.ChatLatency.Count()

	s.SetInput("count me")
	if err := s.SendMessage(ctx); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got := metrics.ChatRequests.Value() - reqs; got != 1 {
		t.Errorf("requests delta = %d, want 1", got)
	}
	if got := metrics.StreamDeltas.Value() - deltas; got != 2 {
		t.Errorf("deltas delta = %d, want 2", got)
	}
	if got := metrics.ChatLatency.Count() - latency; got != 1 {
		t.Errorf("latency observations = %d, want 1", got)
	}
	if metrics.StreamsActive.Value() != 0 {
		t.Errorf("streams active = %d after send", metrics.StreamsActive.Value())
	}
}

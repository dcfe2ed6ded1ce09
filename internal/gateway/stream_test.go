package gateway

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"clawchat/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// collect drains a decoder into accumulated content and thinking text.
func collect(t *testing.T, r io.Reader) (content, thinking string) {
	t.Helper()
	dec := NewDecoder(r, testLogger())
	for {
		ev, err := dec.Recv()
		if errors.Is(err, io.EOF) {
			return content, thinking
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		switch ev.Type {
		case domain.StreamToken:
			content += ev.Content
		case domain.StreamThinking:
			thinking += ev.Content
		default:
			t.Fatalf("unexpected event type %q", ev.Type)
		}
	}
}

func TestDecoder_ChoicesStringDelta(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"ab\"}}]}\n" +
		"data: [DONE]\n"
	content, _ := collect(t, strings.NewReader(body))
	if content != "ab" {
		t.Errorf("expected %q, got %q", "ab", content)
	}
}

func TestDecoder_MalformedLineSkipped(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"y\"}}]}\n" +
		"data: [DONE]\n"
	content, _ := collect(t, strings.NewReader(body))
	if content != "xy" {
		t.Errorf("expected %q, got %q", "xy", content)
	}
}

func TestDecoder_ReassemblesSplitReads(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"he\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"llo\"}}]}\n" +
		"data: [DONE]\n"
	content, _ := collect(t, iotest.OneByteReader(strings.NewReader(body)))
	if content != "hello" {
		t.Errorf("expected %q, got %q", "hello", content)
	}
}

func TestDecoder_ThinkingAndTextItems(t *testing.T) {
	body := `data: {"choices":[{"delta":{"content":[{"type":"thinking","thinking":"let me "},{"type":"text","text":"Hi"}]}}]}` + "\n" +
		`data: {"choices":[{"delta":{"content":[{"type":"thinking","thinking":"see"},{"type":"tool","name":"x"},{"type":"text","text":"!"}]}}]}` + "\n" +
		"data: [DONE]\n"
	content, thinking := collect(t, strings.NewReader(body))
	if content != "Hi!" {
		t.Errorf("content = %q", content)
	}
	if thinking != "let me see" {
		t.Errorf("thinking = %q", thinking)
	}
}

func TestDecoder_OutputTextDelta(t *testing.T) {
	body := `data: {"type":"response.output_text.delta","delta":"Hel"}` + "\n" +
		`data: {"type":"response.output_text.delta","delta":"lo"}` + "\n" +
		`data: {"type":"response.completed"}` + "\n"
	content, _ := collect(t, strings.NewReader(body))
	if content != "Hello" {
		t.Errorf("content = %q", content)
	}
}

func TestDecoder_StopsAtSentinel(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: [DONE]\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n"
	content, _ := collect(t, strings.NewReader(body))
	if content != "a" {
		t.Errorf("content after sentinel should be ignored, got %q", content)
	}
}

func TestDecoder_TrailingLineWithoutNewline(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}"
	content, _ := collect(t, strings.NewReader(body))
	if content != "ab" {
		t.Errorf("content = %q", content)
	}
}

func TestDecoder_IgnoresNonDataLines(t *testing.T) {
	body := ": keep-alive\r\n" +
		"event: message\r\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\r\n" +
		"\r\n" +
		"data: {\"choices\":[{\"delta\":{}}]}\r\n" +
		"data: {\"choices\":[]}\r\n" +
		"data: [DONE]\r\n"
	content, _ := collect(t, strings.NewReader(body))
	if content != "ok" {
		t.Errorf("content = %q", content)
	}
}

func TestDecoder_ReadErrorSurfaces(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n"), iotest.ErrReader(boom))
	dec := NewDecoder(r, testLogger())

	ev, err := dec.Recv()
	if err != nil || ev.Content != "a" {
		t.Fatalf("first Recv = %+v, %v", ev, err)
	}
	if _, err := dec.Recv(); !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}

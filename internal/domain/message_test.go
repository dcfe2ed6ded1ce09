package domain

import (
	"encoding/json"
	"testing"
)

func TestContent_PlainTextEncodesAsString(t *testing.T) {
	data, err := json.Marshal(Message{Role: RoleUser, Content: TextContent("hi")})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"role":"user","content":"hi"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestContent_PartsEncodeAsArray(t *testing.T) {
	c := PartsContent(
		ContentPart{Type: "text", Text: "look"},
		ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: "data:image/png;base64,AAA"}},
	)
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"type":"text","text":"look"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AAA"}}]`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestContent_EmptyPartsStayArray(t *testing.T) {
	data, err := json.Marshal(PartsContent())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("got %s, want []", data)
	}
}

func TestContent_DecodeBothShapes(t *testing.T) {
	var msgs []Message
	raw := `[
		{"role":"user","content":"hello","timestamp":1700000000000},
		{"role":"assistant","content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"a"},{"type":"text","text":"b"}]},
		{"role":"toolResult","content":null}
	]`
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Content.IsParts() || msgs[0].Content.String() != "hello" {
		t.Errorf("unexpected first content: %+v", msgs[0].Content)
	}
	if msgs[0].Timestamp != 1700000000000 {
		t.Errorf("timestamp = %d", msgs[0].Timestamp)
	}
	if !msgs[1].Content.IsParts() || msgs[1].Content.String() != "ab" {
		t.Errorf("unexpected second content: %+v", msgs[1].Content)
	}
	if msgs[2].Content.String() != "" {
		t.Errorf("null content should decode empty, got %q", msgs[2].Content.String())
	}
}

func TestContent_RejectsObject(t *testing.T) {
	var c Content
	if err := json.Unmarshal([]byte(`{"text":"x"}`), &c); err == nil {
		t.Fatal("expected error for object content")
	}
}

func TestParseView(t *testing.T) {
	if v, ok := ParseView("schedule"); !ok || v != ViewSchedule {
		t.Errorf("ParseView(schedule) = %q, %v", v, ok)
	}
	if _, ok := ParseView("settings"); ok {
		t.Error("settings should not be a view")
	}
}

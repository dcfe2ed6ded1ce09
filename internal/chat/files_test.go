package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"clawchat/internal/domain"
)

func TestFileClassification(t *testing.T) {
	cases := []struct {
		name       string
		image, doc bool
	}{
		{"photo.PNG", true, false},
		{"notes.mdown", false, true},
		{"script.ts", false, false},
		{"README.md", false, true},
		{"diagram.svg", true, false},
		{"archive.tar.gz", false, false},
		{"Makefile", false, false},
		{"png", false, false},
	}
	for _, c := range cases {
		if got := IsImageFile(c.name); got != c.image {
			t.Errorf("IsImageFile(%q) = %v", c.name, got)
		}
		if got := IsMarkdownFile(c.name); got != c.doc {
			t.Errorf("IsMarkdownFile(%q) = %v", c.name, got)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	cases := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for n, want := range cases {
		if got := FormatFileSize(n); got != want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.Local)
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2024, 3, 10, 9, 5, 0, 0, time.Local), "Today 09:05"},
		{time.Date(2024, 3, 9, 23, 59, 0, 0, time.Local), "Yesterday 23:59"},
		{time.Date(2024, 3, 7, 18, 0, 0, 0, time.Local), "3/7 18:00"},
	}
	for _, c := range cases {
		if got := FormatTime(c.at.UnixMilli(), now); got != c.want {
			t.Errorf("FormatTime(%v) = %q, want %q", c.at, got, c.want)
		}
	}
	if FormatTime(0, now) != "" {
		t.Error("zero timestamp should format empty")
	}
}

func TestFileBrowser_NavigateAndOpen(t *testing.T) {
	gw := &fakeGateway{
		tree: map[string][]domain.FileItem{
			"": {
				{Name: "docs", Path: "docs", Type: "directory"},
				{Name: "README.md", Path: "README.md", Type: "file", Size: 12},
			},
			"docs": {
				{Name: "a.md", Path: "a.md", Type: "file", Size: 7},
				{Name: "sub", Path: "sub", Type: "directory"},
			},
			"docs/sub": {},
		},
		fileReply: &domain.FileContent{Content: "# Title"},
	}
	s, _ := newTestStore(t, gw)
	ctx := context.Background()

	if err := s.ToggleFileBrowser(ctx); err != nil {
		t.Fatal(err)
	}
	fb := s.Snapshot().Files
	if !fb.Open || len(fb.Items) != 2 || len(fb.Path) != 0 {
		t.Fatalf("browser state = %+v", fb)
	}

	if err := s.OpenFile(ctx, fb.Items[0]); err != nil {
		t.Fatal(err)
	}
	if p := s.Snapshot().Files.Path; strings.Join(p, "/") != "docs" {
		t.Errorf("path = %v", p)
	}

	// Entries are listed relative to the directory being shown.
	if err := s.OpenPath(ctx, "a.md"); err != nil {
		t.Fatal(err)
	}
	prev := s.Snapshot().Files.Preview
	if prev == nil || !prev.IsMarkdown || prev.Content != "# Title" || prev.Item.Path != "docs/a.md" {
		t.Fatalf("preview = %+v", prev)
	}

	s.CloseFilePreview()
	if s.Snapshot().Files.Preview != nil {
		t.Error("preview not cleared")
	}

	if err := s.OpenPath(ctx, "sub"); err != nil {
		t.Fatal(err)
	}
	if p := s.Snapshot().Files.Path; strings.Join(p, "/") != "docs/sub" {
		t.Errorf("path after entering sub = %v", p)
	}

	if err := s.NavigateUp(ctx); err != nil {
		t.Fatal(err)
	}
	if p := s.Snapshot().Files.Path; strings.Join(p, "/") != "docs" {
		t.Errorf("expected docs after NavigateUp, got %v", p)
	}

	if err := s.ToggleFileBrowser(ctx); err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().Files.Open {
		t.Error("second toggle should close the browser")
	}
	if err := s.ToggleFileBrowser(ctx); err != nil {
		t.Fatal(err)
	}
	fb = s.Snapshot().Files
	if !fb.Open || strings.Join(fb.Path, "/") != "docs" {
		t.Errorf("reopening should keep the directory, got %+v", fb)
	}

	listed, read := gw.fileCalls()
	if strings.Join(listed, "|") != "|docs|docs/sub|docs" {
		t.Errorf("listed = %q", listed)
	}
	if strings.Join(read, "|") != "docs/a.md" {
		t.Errorf("read = %q", read)
	}
}

func TestOpenFile_ImageBecomesDataURL(t *testing.T) {
	gw := &fakeGateway{fileReply: &domain.FileContent{Content: "iVBORw0KGgo="}}
	s, _ := newTestStore(t, gw)

	if err := s.OpenFile(context.Background(), domain.FileItem{Name: "logo.png", Path: "logo.png", Type: "file"}); err != nil {
		t.Fatal(err)
	}
	prev := s.Snapshot().Files.Preview
	if prev == nil || !prev.IsImage || prev.Content != "data:image/png;base64,iVBORw0KGgo=" {
		t.Errorf("preview = %+v", prev)
	}
}

func TestOpenFile_ErrorShowsToast(t *testing.T) {
	gw := &fakeGateway{fileReply: &domain.FileContent{Error: "permission denied"}}
	s, _ := newTestStore(t, gw)

	err := s.OpenFile(context.Background(), domain.FileItem{Name: "secret.txt", Path: "secret.txt", Type: "file"})
	if err == nil {
		t.Fatal("expected error")
	}
	st := s.Snapshot()
	if st.Files.Preview != nil {
		t.Error("preview must not open on error")
	}
	if len(st.Toasts) != 1 || st.Toasts[0].Type != domain.ToastError || !strings.Contains(st.Toasts[0].Message, "permission denied") {
		t.Errorf("toasts = %+v", st.Toasts)
	}
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"clawchat/internal/bus"
	"clawchat/internal/domain"
)

var imageTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"bmp":  "image/bmp",
}

var markdownExts = map[string]bool{
	"md":       true,
	"markdown": true,
	"mdown":    true,
	"mkd":      true,
}

func extOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

func IsImageFile(name string) bool {
	_, ok := imageTypes[extOf(name)]
	return ok
}

func IsMarkdownFile(name string) bool {
	return markdownExts[extOf(name)]
}

// FormatFileSize renders a byte count as B, KB or MB.
func FormatFileSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

// ToggleFileBrowser opens or closes the browser. The first opening lists
// the workspace root of the selected agent; later ones keep the directory
// that was showing.
func (s *Store) ToggleFileBrowser(ctx context.Context) error {
	s.mu.Lock()
	s.state.Files.Open = !s.state.Files.Open
	open := s.state.Files.Open
	if !open {
		s.state.Files.Preview = nil
	}
	listed := len(s.state.Files.Items) > 0
	s.mu.Unlock()

	if !open {
		s.emit(bus.EventFileClosed, nil)
		return nil
	}
	if listed {
		return nil
	}
	return s.NavigateFiles(ctx, "")
}

// NavigateFiles lists a directory of the selected agent's workspace.
// "" is the root.
func (s *Store) NavigateFiles(ctx context.Context, dir string) error {
	dir = strings.Trim(dir, "/")
	s.mu.Lock()
	agentID := s.state.SelectedAgentID
	s.state.Files.Loading = true
	s.mu.Unlock()

	var items []domain.FileItem
	var err error
	if s.gw != nil {
		items, err = s.gw.ListFiles(ctx, agentID, dir)
	}

	s.mu.Lock()
	s.state.Files.Loading = false
	if err == nil {
		s.state.Files.Items = items
		s.state.Files.Path = splitPath(dir)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("list files failed", "agent", agentID, "path", dir, "err", err)
		s.ShowToast("Failed to load files: "+err.Error(), domain.ToastError)
		return fmt.Errorf("list files: %w", err)
	}
	s.emit(bus.EventFilesLoaded, map[string]any{"agent": agentID, "path": dir, "count": len(items)})
	return nil
}

// NavigateUp lists the parent of the current directory.
func (s *Store) NavigateUp(ctx context.Context) error {
	s.mu.Lock()
	segs := s.state.Files.Path
	if len(segs) > 0 {
		segs = segs[:len(segs)-1]
	}
	dir := strings.Join(segs, "/")
	s.mu.Unlock()
	return s.NavigateFiles(ctx, dir)
}

func splitPath(dir string) []string {
	if dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}

// OpenFile enters a directory, or fetches a file for preview. item.Path is
// relative to the directory being shown, as the gateway lists it. A read
// error reported by the gateway becomes an error toast and no preview.
func (s *Store) OpenFile(ctx context.Context, item domain.FileItem) error {
	s.mu.Lock()
	agentID := s.state.SelectedAgentID
	item.Path = path.Join(strings.Join(s.state.Files.Path, "/"), item.Path)
	s.mu.Unlock()

	if item.IsDir() {
		return s.NavigateFiles(ctx, item.Path)
	}

	var fc *domain.FileContent
	var err error
	if s.gw != nil {
		fc, err = s.gw.ReadFile(ctx, agentID, item.Path)
	} else {
		err = errors.New("no gateway configured")
	}
	if err == nil && fc == nil {
		fc = &domain.FileContent{}
	}
	if err == nil && fc.Error != "" {
		err = errors.New(fc.Error)
	}
	if err != nil {
		s.logger.Warn("read file failed", "agent", agentID, "path", item.Path, "err", err)
		s.ShowToast("Failed to open "+item.Name+": "+err.Error(), domain.ToastError)
		return fmt.Errorf("read file: %w", err)
	}

	p := &Preview{
		Item:       item,
		Content:    fc.Content,
		IsImage:    IsImageFile(item.Name),
		IsMarkdown: IsMarkdownFile(item.Name),
	}
	if p.IsImage && !strings.HasPrefix(p.Content, "data:") {
		p.Content = "data:" + imageTypes[extOf(item.Name)] + ";base64," + p.Content
	}

	s.mu.Lock()
	s.state.Files.Preview = p
	s.mu.Unlock()
	s.emit(bus.EventFileOpened, map[string]any{"path": item.Path, "image": p.IsImage})
	return nil
}

// OpenPath opens the workspace entry at a path relative to the current
// directory, as listed by the last navigation.
func (s *Store) OpenPath(ctx context.Context, name string) error {
	s.mu.Lock()
	var found *domain.FileItem
	for i := range s.state.Files.Items {
		it := s.state.Files.Items[i]
		if it.Name == name || it.Path == name {
			found = &it
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return s.OpenFile(ctx, domain.FileItem{Name: path.Base(name), Path: name, Type: "file"})
	}
	return s.OpenFile(ctx, *found)
}

func (s *Store) CloseFilePreview() {
	s.mu.Lock()
	s.state.Files.Preview = nil
	s.mu.Unlock()
	s.emit(bus.EventFileClosed, nil)
}
